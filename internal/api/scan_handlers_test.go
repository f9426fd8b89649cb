package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dealradar/internal/config"
	"dealradar/internal/model"
	"dealradar/internal/pkg/metrics"
	"dealradar/internal/scan"

	"github.com/gin-gonic/gin"
)

type mockScanService struct {
	createFunc  func(ctx context.Context, req scan.CreateScanRequest) (*model.Scan, error)
	createCalls int
}

func (m *mockScanService) CreateScan(ctx context.Context, req scan.CreateScanRequest) (*model.Scan, error) {
	m.createCalls++
	return m.createFunc(ctx, req)
}

type mockScanReader struct {
	scans   map[uint]*model.Scan
	results map[uint][]model.ScanResult
}

func (m *mockScanReader) GetScan(ctx context.Context, id uint) (*model.Scan, error) {
	s, ok := m.scans[id]
	if !ok {
		return nil, fmt.Errorf("scan %d not found", id)
	}
	return s, nil
}

func (m *mockScanReader) ListScansByUser(ctx context.Context, userID uint) ([]model.Scan, error) {
	var out []model.Scan
	for _, s := range m.scans {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockScanReader) ResultsForScan(ctx context.Context, scanID uint) ([]model.ScanResult, error) {
	return m.results[scanID], nil
}

func newTestServer(svc ScanService, reader ScanReader) (*Server, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics(1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := &Server{
		cfg:    &config.Config{},
		logger: logger,
		scans:  svc,
		reader: reader,
	}

	r := gin.New()
	r.POST("/scans", func(c *gin.Context) {
		c.Set("userID", uint(1))
		s.handleCreateScan(c)
	})
	r.GET("/scans", func(c *gin.Context) {
		c.Set("userID", uint(1))
		s.handleListScans(c)
	})
	r.GET("/scans/:id", func(c *gin.Context) {
		c.Set("userID", uint(1))
		s.handleGetScan(c)
	})
	r.GET("/scans/:id/results", func(c *gin.Context) {
		c.Set("userID", uint(1))
		s.handleGetScanResults(c)
	})
	return s, r
}

func postJSON(r http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateScan_Accepted(t *testing.T) {
	svc := &mockScanService{
		createFunc: func(ctx context.Context, req scan.CreateScanRequest) (*model.Scan, error) {
			if req.UserID != 1 {
				t.Errorf("user id = %d, want 1", req.UserID)
			}
			return &model.Scan{ID: 7, UserID: 1, Retailer: req.Retailer, Zip: "90017",
				Plan: "free", Status: model.ScanStatusPending}, nil
		},
	}
	_, r := newTestServer(svc, &mockScanReader{})

	w := postJSON(r, "/scans", createScanRequest{Retailer: "home-depot", Zip: "90017"})

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	var resp scanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.ID != 7 || resp.Status != model.ScanStatusPending {
		t.Fatalf("resp = %+v", resp)
	}
	if svc.createCalls != 1 {
		t.Fatalf("create called %d times", svc.createCalls)
	}
}

func TestCreateScan_ValidationRejected(t *testing.T) {
	svc := &mockScanService{
		createFunc: func(ctx context.Context, req scan.CreateScanRequest) (*model.Scan, error) {
			return nil, fmt.Errorf("%w: malformed zip", scan.ErrValidation)
		},
	}
	_, r := newTestServer(svc, &mockScanReader{})

	w := postJSON(r, "/scans", createScanRequest{Retailer: "home-depot", Zip: "nope"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateScan_QuotaExceeded(t *testing.T) {
	svc := &mockScanService{
		createFunc: func(ctx context.Context, req scan.CreateScanRequest) (*model.Scan, error) {
			return nil, &scan.QuotaExceededError{Current: 3, Quota: 3}
		},
	}
	_, r := newTestServer(svc, &mockScanReader{})

	w := postJSON(r, "/scans", createScanRequest{Retailer: "home-depot"})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["current"] != float64(3) || resp["quota"] != float64(3) {
		t.Fatalf("usage not reported back: %v", resp)
	}
}

func TestCreateScan_MissingRetailer(t *testing.T) {
	svc := &mockScanService{
		createFunc: func(ctx context.Context, req scan.CreateScanRequest) (*model.Scan, error) {
			t.Fatal("service must not be called on binding failure")
			return nil, nil
		},
	}
	_, r := newTestServer(svc, &mockScanReader{})

	w := postJSON(r, "/scans", map[string]string{"zip": "90017"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetScan_HidesForeignScans(t *testing.T) {
	now := time.Now()
	reader := &mockScanReader{
		scans: map[uint]*model.Scan{
			1: {ID: 1, UserID: 1, Status: model.ScanStatusCompleted, CompletedAt: &now},
			2: {ID: 2, UserID: 99, Status: model.ScanStatusCompleted},
		},
	}
	_, r := newTestServer(&mockScanService{}, reader)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scans/1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("own scan status = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scans/2", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign scan status = %d, want 404", w.Code)
	}
}

func TestGetScanResults(t *testing.T) {
	reader := &mockScanReader{
		scans: map[uint]*model.Scan{
			1: {ID: 1, UserID: 1, Status: model.ScanStatusCompleted},
		},
		results: map[uint][]model.ScanResult{
			1: {
				{ScanID: 1, StoreID: "hd-0206", ProductName: "Drill", ClearancePrice: 49, WasPrice: 99, SavePercent: 50, IsOnClearance: true},
			},
		},
	}
	_, r := newTestServer(&mockScanService{}, reader)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/scans/1/results", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp []scanResultResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(resp) != 1 || resp[0].ProductName != "Drill" || !resp[0].IsOnClearance {
		t.Fatalf("resp = %+v", resp)
	}
}
