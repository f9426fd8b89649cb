package provider

import (
	"context"
	"fmt"
)

// API is the direct-API integration point. No retailer exposes a usable
// deals API yet, so every call fails fast instead of silently returning
// nothing.
type API struct {
	retailer string
}

func NewAPI(retailer string) *API {
	return &API{retailer: retailer}
}

func (a *API) Init(ctx context.Context) error {
	return fmt.Errorf("%w: api mode for %s", ErrNotConfigured, a.retailer)
}

func (a *API) FetchDeals(ctx context.Context, opts Options) ([]Product, error) {
	return nil, fmt.Errorf("%w: api mode for %s", ErrNotConfigured, a.retailer)
}

func (a *API) Close() {}
