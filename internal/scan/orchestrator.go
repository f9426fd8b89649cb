package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dealradar/internal/config"
	"dealradar/internal/geo"
	"dealradar/internal/model"
	"dealradar/internal/obscache"
	"dealradar/internal/pkg/metrics"
	"dealradar/internal/pkg/notify"
	"dealradar/internal/pkg/queue"
	"dealradar/internal/pkg/ratelimit"
	"dealradar/internal/plan"
	"dealradar/internal/provider"
	"dealradar/internal/stores"
)

// ErrValidation marks a malformed scan request, rejected before any row is
// written.
var ErrValidation = errors.New("invalid scan request")

// QuotaExceededError rejects a creation that would pass the monthly quota,
// reporting current usage back to the caller.
type QuotaExceededError struct {
	Current int
	Quota   int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("monthly scan quota exceeded: %d of %d used", e.Current, e.Quota)
}

// Retailers with a provider behind them.
var knownRetailers = map[string]bool{
	"home-depot":   true,
	"ace-hardware": true,
}

// Directory supplies store locations per retailer.
type Directory interface {
	ByRetailer(ctx context.Context, retailer string) ([]model.StoreLocation, error)
}

// CreateScanRequest is the normalized input from the HTTP layer.
type CreateScanRequest struct {
	UserID        uint
	Retailer      string
	Zip           string // empty falls back to the user's profile ZIP
	Selection     string // "all" (default) or "specific"
	SKUs          []string
	ClearanceOnly bool
	Category      string
	MaxPrice      float64
	SortBy        string
}

// Orchestrator owns the scan lifecycle: validated synchronous creation,
// then detached background execution through the job queue.
type Orchestrator struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     Store
	directory Directory
	resolver  *geo.Resolver
	cache     *obscache.Cache
	limiter   *ratelimit.Limiter
	jobs      *queue.Queue
	notifier  notify.Notifier

	// newProvider is swappable so execution paths are testable without a
	// real browser.
	newProvider func(retailer, mode string, deps provider.Deps) (provider.Provider, error)
}

func NewOrchestrator(
	cfg *config.Config,
	logger *slog.Logger,
	store Store,
	directory Directory,
	resolver *geo.Resolver,
	cache *obscache.Cache,
	limiter *ratelimit.Limiter,
	jobs *queue.Queue,
	notifier notify.Notifier,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		directory:   directory,
		resolver:    resolver,
		cache:       cache,
		limiter:     limiter,
		jobs:        jobs,
		notifier:    notifier,
		newProvider: provider.New,
	}
}

// CreateScan validates the request, reserves a quota slot, persists the
// scan in pending and schedules background execution. Returns immediately
// after persistence; the caller never waits on provider I/O.
func (o *Orchestrator) CreateScan(ctx context.Context, req CreateScanRequest) (*model.Scan, error) {
	user, err := o.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown user", ErrValidation)
	}

	zip := strings.TrimSpace(req.Zip)
	if zip == "" {
		zip = user.Zip
	}
	if !geo.ValidZip(zip) {
		return nil, fmt.Errorf("%w: malformed zip %q", ErrValidation, zip)
	}
	if !knownRetailers[req.Retailer] {
		return nil, fmt.Errorf("%w: unknown retailer %q", ErrValidation, req.Retailer)
	}

	selection := req.Selection
	if selection == "" {
		selection = model.SelectionAll
	}
	if selection != model.SelectionAll && selection != model.SelectionSpecific {
		return nil, fmt.Errorf("%w: bad selection %q", ErrValidation, selection)
	}
	if selection == model.SelectionSpecific && len(req.SKUs) == 0 {
		return nil, fmt.Errorf("%w: specific selection needs at least one sku", ErrValidation)
	}
	switch req.SortBy {
	case "", "savings", "price", "name":
	default:
		return nil, fmt.Errorf("%w: bad sort %q", ErrValidation, req.SortBy)
	}

	tier := plan.Normalize(user.Plan)
	quota := plan.MonthlyScanQuota(tier)

	scan := &model.Scan{
		UserID:        user.ID,
		Retailer:      req.Retailer,
		Zip:           zip,
		Plan:          tier,
		Selection:     selection,
		SKUs:          strings.Join(req.SKUs, ","),
		ClearanceOnly: req.ClearanceOnly,
		Category:      req.Category,
		MaxPrice:      req.MaxPrice,
		SortBy:        req.SortBy,
		Status:        model.ScanStatusPending,
	}

	allowed, current, err := o.store.CreateScanWithQuota(ctx, scan, quota)
	if err != nil {
		return nil, fmt.Errorf("reserve quota: %w", err)
	}
	if !allowed {
		metrics.QuotaRejectedTotal.Inc()
		return nil, &QuotaExceededError{Current: current, Quota: quota}
	}

	scanID := scan.ID
	if !o.jobs.Enqueue(func(jobCtx context.Context) error {
		o.Execute(jobCtx, scanID)
		return nil
	}) {
		// Queue saturated. The scan exists in pending; flip it to a
		// terminal state through the legal path so it does not hang.
		o.logger.Error("scan dispatch rejected, queue full", slog.Uint64("scan_id", uint64(scanID)))
		if err := o.store.MarkRunning(ctx, scanID); err == nil {
			_ = o.store.MarkFailed(ctx, scanID)
		}
	}

	o.logger.Info("scan created",
		slog.Uint64("scan_id", uint64(scan.ID)),
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("retailer", scan.Retailer),
		slog.String("plan", tier),
		slog.Int("quota_used", current+1),
		slog.Int("quota", quota))
	return scan, nil
}

// Execute runs one scan to a terminal state. The whole operation races a
// configurable timeout; on timeout the in-flight work is abandoned and the
// scan is marked failed. Resources are released on every exit path.
func (o *Orchestrator) Execute(ctx context.Context, scanID uint) {
	logger := o.logger.With(slog.Uint64("scan_id", uint64(scanID)))

	scan, err := o.store.GetScan(ctx, scanID)
	if err != nil {
		logger.Error("scan load failed", slog.String("error", err.Error()))
		return
	}
	if err := o.store.MarkRunning(ctx, scanID); err != nil {
		logger.Error("scan start rejected", slog.String("error", err.Error()))
		return
	}

	metrics.ActiveScans.Inc()
	defer metrics.ActiveScans.Dec()
	start := time.Now()

	execCtx, cancel := context.WithTimeout(ctx, o.cfg.App.ScanTimeout)
	defer cancel()

	type outcome struct {
		resultCount    int
		clearanceCount int
		err            error
	}
	done := make(chan outcome, 1)
	go func() {
		rc, cc, err := o.run(execCtx, logger, scan)
		done <- outcome{resultCount: rc, clearanceCount: cc, err: err}
	}()

	var status string
	select {
	case out := <-done:
		if out.err != nil {
			logger.Error("scan failed", slog.String("error", out.err.Error()))
			o.failScan(scanID, logger)
			status = model.ScanStatusFailed
		} else {
			if err := o.store.MarkCompleted(context.Background(), scanID, out.resultCount, out.clearanceCount); err != nil {
				logger.Error("scan completion update failed", slog.String("error", err.Error()))
			}
			status = model.ScanStatusCompleted
			logger.Info("scan completed",
				slog.Int("results", out.resultCount),
				slog.Int("clearance", out.clearanceCount),
				slog.Duration("took", time.Since(start)))
			o.sendDigest(scanID)
		}
	case <-execCtx.Done():
		logger.Error("scan timed out", slog.Duration("timeout", o.cfg.App.ScanTimeout))
		o.failScan(scanID, logger)
		status = model.ScanStatusFailed
	}

	metrics.ScansTotal.WithLabelValues(scan.Retailer, status).Inc()
	metrics.ScanDuration.WithLabelValues(scan.Retailer).Observe(time.Since(start).Seconds())
}

// failScan flips a running scan to failed, off the possibly-dead execCtx.
func (o *Orchestrator) failScan(scanID uint, logger *slog.Logger) {
	if err := o.store.MarkFailed(context.Background(), scanID); err != nil {
		logger.Error("scan failure update failed", slog.String("error", err.Error()))
	}
}

// run performs the scan body: store resolution, provider fetch, result
// persistence. Already-written results survive a later failure; failures
// are reported, not rolled back or retried.
func (o *Orchestrator) run(ctx context.Context, logger *slog.Logger, scan *model.Scan) (int, int, error) {
	origin, tier := o.resolver.Resolve(scan.Zip)
	logger.Debug("zip resolved", slog.String("zip", scan.Zip), slog.String("tier", tier))

	locations, err := o.directory.ByRetailer(ctx, scan.Retailer)
	if err != nil {
		return 0, 0, err
	}

	var targetIDs []string
	if radius, ok := stores.RadiusFor(scan.Retailer); ok {
		targetIDs = stores.SelectWithinRadius(origin, locations, radius)
	} else {
		targetIDs = stores.SelectNearest(origin, locations, plan.StoreLimitPerScan(scan.Plan))
	}
	if err := o.store.SetStoreCount(ctx, scan.ID, len(targetIDs)); err != nil {
		logger.Warn("store count update failed", slog.String("error", err.Error()))
	}

	// Zero stores in range is a valid empty outcome, not a failure.
	if len(targetIDs) == 0 {
		logger.Info("no stores in range", slog.String("zip", scan.Zip))
		return 0, 0, nil
	}

	targets := make([]provider.StoreRef, 0, len(targetIDs))
	byID := make(map[string]model.StoreLocation, len(locations))
	for _, l := range locations {
		byID[l.ID] = l
	}
	for _, id := range targetIDs {
		name := id
		if l, ok := byID[id]; ok && l.City != "" {
			name = l.City
		}
		targets = append(targets, provider.StoreRef{ID: id, Name: name})
	}

	mode := o.cfg.Providers.ModeFor(scan.Retailer)
	p, err := o.newProvider(scan.Retailer, mode, provider.Deps{
		Logger:  o.logger,
		Cache:   o.cache,
		Limiter: o.limiter,
		Browser: o.cfg.Browser,
	})
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(scan.Retailer, mode, "error").Inc()
		return 0, 0, err
	}
	defer p.Close()

	if err := p.Init(ctx); err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(scan.Retailer, mode, "error").Inc()
		return 0, 0, fmt.Errorf("provider init: %w", err)
	}

	opts := provider.Options{
		Stores:        targets,
		Selection:     scan.Selection,
		ClearanceOnly: scan.ClearanceOnly,
		Category:      scan.Category,
		MaxPrice:      scan.MaxPrice,
		Progress: func(stage string, current, total int) {
			logger.Debug("scan progress",
				slog.String("stage", stage),
				slog.Int("current", current),
				slog.Int("total", total))
		},
	}
	if scan.SKUs != "" {
		opts.SKUs = strings.Split(scan.SKUs, ",")
	}

	products, err := p.FetchDeals(ctx, opts)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(scan.Retailer, mode, "error").Inc()
		return 0, 0, fmt.Errorf("fetch deals: %w", err)
	}
	metrics.ProviderRequestsTotal.WithLabelValues(scan.Retailer, mode, "ok").Inc()

	results := make([]model.ScanResult, 0, len(products))
	clearance := 0
	for _, prod := range products {
		if prod.IsOnClearance {
			clearance++
		}
		results = append(results, model.ScanResult{
			ScanID:          scan.ID,
			StoreID:         prod.StoreID,
			StoreName:       prod.StoreName,
			ProductName:     prod.Name,
			SKU:             prod.SKU,
			ProductURL:      prod.URL,
			ClearancePrice:  prod.ClearancePrice,
			WasPrice:        prod.WasPrice,
			SavePercent:     prod.SavePercent,
			InStock:         prod.InStock,
			DeliveryMessage: prod.DeliveryMessage,
			IsOnClearance:   prod.IsOnClearance,
			PriceSuppressed: prod.PriceSuppressed,
			Category:        prod.Category,
			Source:          prod.Source,
			ObservedAt:      prod.ObservedAt,
			InStorePurchase: prod.InStorePurchase,
		})
	}
	if err := o.store.SaveResults(ctx, results); err != nil {
		return 0, 0, err
	}
	return len(results), clearance, nil
}

// sendDigest emails the scan summary best-effort.
func (o *Orchestrator) sendDigest(scanID uint) {
	if o.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	scan, err := o.store.GetScan(ctx, scanID)
	if err != nil {
		return
	}
	user, err := o.store.GetUser(ctx, scan.UserID)
	if err != nil {
		return
	}
	results, err := o.store.ResultsForScan(ctx, scanID)
	if err != nil {
		return
	}
	if err := o.notifier.SendScanDigest(ctx, scan, results, user.Email); err != nil {
		o.logger.Warn("scan digest delivery failed",
			slog.Uint64("scan_id", uint64(scanID)),
			slog.String("error", err.Error()))
	}
}
