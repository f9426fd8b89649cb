package provider

import (
	"context"
	"log/slog"
	"time"

	"dealradar/internal/config"
)

// Mock serves the retailer's fixed seed catalog straight from memory. No
// I/O; used in development, in tests and whenever the kill-switch trips.
type Mock struct {
	retailer string
	logger   *slog.Logger
}

func NewMock(retailer string, logger *slog.Logger) *Mock {
	return &Mock{retailer: retailer, logger: logger}
}

func (m *Mock) Init(ctx context.Context) error { return nil }

func (m *Mock) Close() {}

// FetchDeals filters the seed catalog by the requested criteria, once per
// target store. Progress is reported in the same stages the browser
// variant emits so log shapes stay comparable.
func (m *Mock) FetchDeals(ctx context.Context, opts Options) ([]Product, error) {
	seeds := seedsFor(m.retailer)
	products := make([]Product, 0, len(seeds)*len(opts.Stores))

	total := len(opts.Stores)
	for i, store := range opts.Stores {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		opts.progress("store_start", i+1, total)

		for j, seed := range seeds {
			opts.progress("product_check", j+1, len(seeds))
			if !opts.skuAllowed(seed.SKU) {
				continue
			}
			if opts.ClearanceOnly && !seed.IsOnClearance {
				continue
			}
			if opts.Category != "" && seed.Category != opts.Category {
				continue
			}
			if opts.MaxPrice > 0 && !seed.PriceSuppressed && seed.ClearancePrice > opts.MaxPrice {
				continue
			}

			products = append(products, Product{
				StoreID:         store.ID,
				StoreName:       store.Name,
				Name:            seed.Name,
				SKU:             seed.SKU,
				URL:             seed.URL,
				ClearancePrice:  seed.ClearancePrice,
				WasPrice:        seed.WasPrice,
				SavePercent:     savePercent(seed.ClearancePrice, seed.WasPrice),
				InStock:         seed.InStock,
				DeliveryMessage: seed.DeliveryMessage,
				IsOnClearance:   seed.IsOnClearance,
				PriceSuppressed: seed.PriceSuppressed,
				Category:        seed.Category,
				Source:          config.ModeMock,
				ObservedAt:      time.Now(),
				InStorePurchase: seed.InStorePurchase,
			})
		}
		opts.progress("store_done", i+1, total)
	}

	m.logger.Debug("mock fetch complete",
		slog.String("retailer", m.retailer),
		slog.Int("stores", len(opts.Stores)),
		slog.Int("products", len(products)))
	return products, nil
}

func savePercent(price, was float64) int {
	if was <= 0 || price <= 0 || price >= was {
		return 0
	}
	return int((was - price) / was * 100)
}
