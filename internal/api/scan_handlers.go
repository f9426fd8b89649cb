package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"dealradar/internal/model"
	"dealradar/internal/scan"

	"github.com/gin-gonic/gin"
)

type createScanRequest struct {
	Retailer      string   `json:"retailer" binding:"required"`
	Zip           string   `json:"zip"`
	Selection     string   `json:"selection"`
	SKUs          []string `json:"skus"`
	ClearanceOnly bool     `json:"clearance_only"`
	Category      string   `json:"category"`
	MaxPrice      float64  `json:"max_price"`
	SortBy        string   `json:"sort"`
}

// scanResponse exposes status, counts and timestamps only. Internal error
// detail stays in the server logs.
type scanResponse struct {
	ID             uint       `json:"id"`
	Retailer       string     `json:"retailer"`
	Zip            string     `json:"zip"`
	Plan           string     `json:"plan"`
	Status         string     `json:"status"`
	StoreCount     int        `json:"store_count"`
	ResultCount    int        `json:"result_count"`
	ClearanceCount int        `json:"clearance_count"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

type scanResultResponse struct {
	StoreID         string    `json:"store_id"`
	StoreName       string    `json:"store_name"`
	ProductName     string    `json:"product_name"`
	SKU             string    `json:"sku,omitempty"`
	ProductURL      string    `json:"product_url"`
	ClearancePrice  float64   `json:"clearance_price"`
	WasPrice        float64   `json:"was_price"`
	SavePercent     int       `json:"save_percent"`
	InStock         bool      `json:"in_stock"`
	DeliveryMessage string    `json:"delivery_message,omitempty"`
	IsOnClearance   bool      `json:"is_on_clearance"`
	PriceSuppressed bool      `json:"price_suppressed"`
	Category        string    `json:"category,omitempty"`
	ObservedAt      time.Time `json:"observed_at"`
	InStorePurchase bool      `json:"in_store_purchase"`
}

func toScanResponse(s *model.Scan) scanResponse {
	return scanResponse{
		ID:             s.ID,
		Retailer:       s.Retailer,
		Zip:            s.Zip,
		Plan:           s.Plan,
		Status:         s.Status,
		StoreCount:     s.StoreCount,
		ResultCount:    s.ResultCount,
		ClearanceCount: s.ClearanceCount,
		CreatedAt:      s.CreatedAt,
		CompletedAt:    s.CompletedAt,
	}
}

func (s *Server) handleCreateScan(c *gin.Context) {
	var req createScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := s.scans.CreateScan(c.Request.Context(), scan.CreateScanRequest{
		UserID:        getUserID(c),
		Retailer:      req.Retailer,
		Zip:           req.Zip,
		Selection:     req.Selection,
		SKUs:          req.SKUs,
		ClearanceOnly: req.ClearanceOnly,
		Category:      req.Category,
		MaxPrice:      req.MaxPrice,
		SortBy:        req.SortBy,
	})
	if err != nil {
		var qe *scan.QuotaExceededError
		switch {
		case errors.Is(err, scan.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &qe):
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "monthly scan quota exceeded",
				"current": qe.Current,
				"quota":   qe.Quota,
			})
		default:
			s.logger.Error("create scan failed", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create scan failed"})
		}
		return
	}

	c.JSON(http.StatusAccepted, toScanResponse(created))
}

func (s *Server) handleListScans(c *gin.Context) {
	scans, err := s.reader.ListScansByUser(c.Request.Context(), getUserID(c))
	if err != nil {
		s.logger.Error("list scans failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list scans failed"})
		return
	}

	out := make([]scanResponse, 0, len(scans))
	for i := range scans {
		out = append(out, toScanResponse(&scans[i]))
	}
	c.JSON(http.StatusOK, out)
}

// ownedScan loads a scan and enforces ownership. Foreign scans read as 404
// so ids are not probeable.
func (s *Server) ownedScan(c *gin.Context) (*model.Scan, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scan id"})
		return nil, false
	}

	found, err := s.reader.GetScan(c.Request.Context(), uint(id))
	if err != nil || found.UserID != getUserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "scan not found"})
		return nil, false
	}
	return found, true
}

func (s *Server) handleGetScan(c *gin.Context) {
	found, ok := s.ownedScan(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toScanResponse(found))
}

func (s *Server) handleGetScanResults(c *gin.Context) {
	found, ok := s.ownedScan(c)
	if !ok {
		return
	}

	results, err := s.reader.ResultsForScan(c.Request.Context(), found.ID)
	if err != nil {
		s.logger.Error("load results failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load results failed"})
		return
	}

	out := make([]scanResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, scanResultResponse{
			StoreID:         r.StoreID,
			StoreName:       r.StoreName,
			ProductName:     r.ProductName,
			SKU:             r.SKU,
			ProductURL:      r.ProductURL,
			ClearancePrice:  r.ClearancePrice,
			WasPrice:        r.WasPrice,
			SavePercent:     r.SavePercent,
			InStock:         r.InStock,
			DeliveryMessage: r.DeliveryMessage,
			IsOnClearance:   r.IsOnClearance,
			PriceSuppressed: r.PriceSuppressed,
			Category:        r.Category,
			ObservedAt:      r.ObservedAt,
			InStorePurchase: r.InStorePurchase,
		})
	}
	c.JSON(http.StatusOK, out)
}
