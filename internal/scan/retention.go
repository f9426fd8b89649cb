package scan

import (
	"context"
	"log/slog"
	"time"

	"dealradar/internal/config"
	"dealradar/internal/obscache"
)

// Janitor enforces the retention windows: terminal scans and cached
// observations past their age are deleted, and the observation cache is
// held under its size cap.
type Janitor struct {
	cfg    *config.Config
	logger *slog.Logger
	store  Store
	cache  *obscache.Cache
}

func NewJanitor(cfg *config.Config, logger *slog.Logger, store Store, cache *obscache.Cache) *Janitor {
	return &Janitor{cfg: cfg, logger: logger, store: store, cache: cache}
}

// Run sweeps on the configured interval until ctx is cancelled. One sweep
// happens immediately on start.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.App.JanitorInterval)
	defer ticker.Stop()

	j.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopped")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	scanCutoff := time.Now().AddDate(0, 0, -j.cfg.App.ScanRetention)
	if n, err := j.store.DeleteScansOlderThan(ctx, scanCutoff); err != nil {
		j.logger.Error("scan retention sweep failed", slog.String("error", err.Error()))
	} else if n > 0 {
		j.logger.Info("scan retention sweep", slog.Int64("deleted", n))
	}

	if j.cache == nil {
		return
	}
	obsCutoff := time.Now().AddDate(0, 0, -j.cfg.App.ObsRetention)
	if n, err := j.cache.PurgeOlderThan(ctx, obsCutoff); err != nil {
		j.logger.Error("observation retention sweep failed", slog.String("error", err.Error()))
	} else if n > 0 {
		j.logger.Info("observation retention sweep", slog.Int("deleted", n))
	}
	if err := j.cache.EnforceSizeCap(ctx); err != nil {
		j.logger.Error("observation size cap sweep failed", slog.String("error", err.Error()))
	}
}
