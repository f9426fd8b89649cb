package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dealradar/internal/model"
)

// ErrIllegalTransition is returned when a status update would violate the
// scan state machine (pending -> running -> completed|failed).
var ErrIllegalTransition = errors.New("illegal scan status transition")

var errQuotaFull = errors.New("quota full")

// Store is the persistence contract the orchestrator consumes.
type Store interface {
	// CreateScanWithQuota atomically counts the user's scans for the
	// current calendar month and creates the scan only when the count is
	// below quota. Returns whether creation happened and the count seen.
	CreateScanWithQuota(ctx context.Context, scan *model.Scan, quota int) (allowed bool, current int, err error)

	GetUser(ctx context.Context, id uint) (*model.User, error)
	GetScan(ctx context.Context, id uint) (*model.Scan, error)
	ListScansByUser(ctx context.Context, userID uint) ([]model.Scan, error)
	ResultsForScan(ctx context.Context, scanID uint) ([]model.ScanResult, error)

	MarkRunning(ctx context.Context, id uint) error
	SetStoreCount(ctx context.Context, id uint, count int) error
	MarkCompleted(ctx context.Context, id uint, resultCount, clearanceCount int) error
	MarkFailed(ctx context.Context, id uint) error

	SaveResults(ctx context.Context, results []model.ScanResult) error
	DeleteScansOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormStore is the MySQL-backed Store.
type GormStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewGormStore(db *gorm.DB, logger *slog.Logger) *GormStore {
	return &GormStore{db: db, logger: logger}
}

// CreateScanWithQuota serializes concurrent creations for one user by
// locking the user row, so two requests racing for the last quota slot
// cannot both pass the count check.
func (s *GormStore) CreateScanWithQuota(ctx context.Context, scan *model.Scan, quota int) (bool, int, error) {
	var current int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, scan.UserID).Error; err != nil {
			return fmt.Errorf("lock user %d: %w", scan.UserID, err)
		}

		now := time.Now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		if err := tx.Model(&model.Scan{}).
			Where("user_id = ? AND created_at >= ?", scan.UserID, monthStart).
			Count(&current).Error; err != nil {
			return fmt.Errorf("count monthly scans: %w", err)
		}

		if current >= int64(quota) {
			return errQuotaFull
		}
		if err := tx.Create(scan).Error; err != nil {
			return fmt.Errorf("create scan: %w", err)
		}
		return nil
	})

	if errors.Is(err, errQuotaFull) {
		return false, int(current), nil
	}
	if err != nil {
		return false, int(current), err
	}
	return true, int(current), nil
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &user, nil
}

func (s *GormStore) GetScan(ctx context.Context, id uint) (*model.Scan, error) {
	var scan model.Scan
	if err := s.db.WithContext(ctx).First(&scan, id).Error; err != nil {
		return nil, fmt.Errorf("get scan %d: %w", id, err)
	}
	return &scan, nil
}

func (s *GormStore) ListScansByUser(ctx context.Context, userID uint) ([]model.Scan, error) {
	var scans []model.Scan
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&scans).Error
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return scans, nil
}

func (s *GormStore) ResultsForScan(ctx context.Context, scanID uint) ([]model.ScanResult, error) {
	var results []model.ScanResult
	err := s.db.WithContext(ctx).
		Where("scan_id = ?", scanID).
		Order("save_percent DESC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("load scan results: %w", err)
	}
	return results, nil
}

// MarkRunning flips pending to running. Any other starting state is an
// illegal transition.
func (s *GormStore) MarkRunning(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&model.Scan{}).
		Where("id = ? AND status = ?", id, model.ScanStatusPending).
		Update("status", model.ScanStatusRunning)
	if res.Error != nil {
		return fmt.Errorf("mark running: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("scan %d: %w", id, ErrIllegalTransition)
	}
	return nil
}

func (s *GormStore) SetStoreCount(ctx context.Context, id uint, count int) error {
	err := s.db.WithContext(ctx).Model(&model.Scan{}).
		Where("id = ?", id).
		Update("store_count", count).Error
	if err != nil {
		return fmt.Errorf("set store count: %w", err)
	}
	return nil
}

// MarkCompleted flips running to completed and stamps completedAt. The
// status guard makes the stamp happen exactly once.
func (s *GormStore) MarkCompleted(ctx context.Context, id uint, resultCount, clearanceCount int) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&model.Scan{}).
		Where("id = ? AND status = ?", id, model.ScanStatusRunning).
		Updates(map[string]interface{}{
			"status":          model.ScanStatusCompleted,
			"completed_at":    now,
			"result_count":    resultCount,
			"clearance_count": clearanceCount,
		})
	if res.Error != nil {
		return fmt.Errorf("mark completed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("scan %d: %w", id, ErrIllegalTransition)
	}
	return nil
}

// MarkFailed flips running to failed and stamps completedAt.
func (s *GormStore) MarkFailed(ctx context.Context, id uint) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&model.Scan{}).
		Where("id = ? AND status = ?", id, model.ScanStatusRunning).
		Updates(map[string]interface{}{
			"status":       model.ScanStatusFailed,
			"completed_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("mark failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("scan %d: %w", id, ErrIllegalTransition)
	}
	return nil
}

func (s *GormStore) SaveResults(ctx context.Context, results []model.ScanResult) error {
	if len(results) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(results, 100).Error; err != nil {
		return fmt.Errorf("save scan results: %w", err)
	}
	return nil
}

// DeleteScansOlderThan removes terminal scans past the retention window,
// results included.
func (s *GormStore) DeleteScansOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&model.Scan{}).
		Where("created_at < ? AND status IN ?", cutoff,
			[]string{model.ScanStatusCompleted, model.ScanStatusFailed}).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("find expired scans: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.db.WithContext(ctx).Where("scan_id IN ?", ids).
		Delete(&model.ScanResult{}).Error; err != nil {
		return 0, fmt.Errorf("delete expired results: %w", err)
	}
	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Scan{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired scans: %w", res.Error)
	}
	s.logger.Info("expired scans purged", slog.Int("count", len(ids)))
	return res.RowsAffected, nil
}
