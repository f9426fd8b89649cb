package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dealradar/internal/config"
	"dealradar/internal/obscache"
	"dealradar/internal/pkg/ratelimit"
)

// ErrNotConfigured marks a provider mode that exists as a switch position
// but has no working implementation behind it yet.
var ErrNotConfigured = errors.New("provider mode not configured")

// StoreRef identifies one target store for a fetch.
type StoreRef struct {
	ID   string
	Name string
}

// ProgressFunc reports fetch progress for observability logging. It must
// never influence control flow.
type ProgressFunc func(stage string, current, total int)

// Options is the normalized request every provider variant accepts.
type Options struct {
	Stores        []StoreRef
	Selection     string   // "all" or "specific"
	SKUs          []string // allow-list when Selection is "specific"
	ClearanceOnly bool
	Category      string
	MaxPrice      float64 // 0 means no ceiling
	Progress      ProgressFunc
}

func (o Options) progress(stage string, current, total int) {
	if o.Progress != nil {
		o.Progress(stage, current, total)
	}
}

// skuAllowed applies the specific-SKU allow-list.
func (o Options) skuAllowed(sku string) bool {
	if o.Selection != "specific" || len(o.SKUs) == 0 {
		return true
	}
	for _, s := range o.SKUs {
		if s == sku {
			return true
		}
	}
	return false
}

// Product is one normalized product record returned by any provider.
type Product struct {
	StoreID         string
	StoreName       string
	Name            string
	SKU             string
	URL             string
	ClearancePrice  float64
	WasPrice        float64
	SavePercent     int
	InStock         bool
	DeliveryMessage string
	IsOnClearance   bool
	PriceSuppressed bool
	Category        string
	Source          string
	ObservedAt      time.Time
	InStorePurchase bool
}

// Provider fetches deals for one retailer. Implementations are selected by
// the configured data mode; see New.
type Provider interface {
	// Init acquires whatever the variant needs to run. Fails when the mode
	// is unsupported or unconfigured.
	Init(ctx context.Context) error
	// FetchDeals verifies the retailer's product seeds against the target
	// stores and returns the matching records.
	FetchDeals(ctx context.Context, opts Options) ([]Product, error)
	// Close releases acquired resources. Safe to call after a failed Init.
	Close()
}

// Deps carries the shared collaborators providers draw on.
type Deps struct {
	Logger  *slog.Logger
	Cache   *obscache.Cache
	Limiter *ratelimit.Limiter
	Browser config.BrowserConfig
}

// New selects the provider variant for a retailer by data mode. The caller
// resolves kill-switches before this point (see config.ProvidersConfig).
func New(retailer, mode string, deps Deps) (Provider, error) {
	switch mode {
	case config.ModeMock:
		return NewMock(retailer, deps.Logger), nil
	case config.ModeAlt:
		return NewBrowser(retailer, deps), nil
	case config.ModeAPI:
		return NewAPI(retailer), nil
	default:
		return nil, fmt.Errorf("unknown data mode %q for %s", mode, retailer)
	}
}
