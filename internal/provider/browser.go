package provider

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"dealradar/internal/config"
	"dealradar/internal/obscache"
	"dealradar/internal/pkg/metrics"
)

// Browser drives a headless browser session against the retailer site and
// verifies each product seed live. Observation cache hits short-circuit the
// visit; every outcome, negative ones included, is written back so a flaky
// page is not hammered within the freshness window.
type Browser struct {
	retailer string
	logger   *slog.Logger
	deps     Deps

	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewBrowser(retailer string, deps Deps) *Browser {
	return &Browser{
		retailer: retailer,
		logger:   deps.Logger,
		deps:     deps,
	}
}

// Init launches and connects the browser. A failure here is fatal to the
// scan; the orchestrator marks it failed.
func (b *Browser) Init(ctx context.Context) error {
	bin := b.deps.Browser.BinPath
	if bin == "" {
		b.logger.Info("no browser binary specified, downloading default...")
		path, err := launcher.NewBrowser().Get()
		if err != nil {
			return fmt.Errorf("download browser: %w", err)
		}
		bin = path
	}

	l := launcher.New().
		Headless(b.deps.Browser.Headless).
		Bin(bin).
		NoSandbox(true).
		Set("disable-dev-shm-usage", "true").
		Set("disable-gpu", "true").
		Set("disable-software-rasterizer", "true").
		Set("remote-allow-origins", "*").
		Set("disk-cache-size", "1").
		Set("media-cache-size", "1")

	wsURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return fmt.Errorf("connect browser: %w", err)
	}

	b.launcher = l
	b.browser = browser
	metrics.BrowserActive.Inc()
	b.logger.Info("browser started", slog.String("bin", bin), slog.String("retailer", b.retailer))
	return nil
}

// Close tears the browser down. Safe after a failed Init and on the
// timeout path.
func (b *Browser) Close() {
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			b.logger.Warn("browser close failed", slog.String("error", err.Error()))
		}
		b.browser = nil
		metrics.BrowserActive.Dec()
	}
	if b.launcher != nil {
		b.launcher.Cleanup()
		b.launcher = nil
	}
}

// FetchDeals processes stores sequentially, and seeds sequentially within a
// store. The ordering is a deliberate throttle against the retailer site.
func (b *Browser) FetchDeals(ctx context.Context, opts Options) ([]Product, error) {
	if b.browser == nil {
		return nil, fmt.Errorf("browser provider not initialized")
	}

	seeds := seedsFor(b.retailer)
	products := make([]Product, 0, len(seeds))

	total := len(opts.Stores)
	for i, store := range opts.Stores {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		opts.progress("store_start", i+1, total)

		entries, err := b.verifyStore(ctx, store, seeds, opts)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if p, ok := entryToProduct(e, store, opts); ok {
				products = append(products, p)
			}
		}
		opts.progress("store_done", i+1, total)
	}
	return products, nil
}

// verifyStore opens one page for the store, sets store context and walks
// the seed list. Per-seed failures are soft; only page creation aborts.
func (b *Browser) verifyStore(ctx context.Context, store StoreRef, seeds []seedProduct, opts Options) ([]obscache.Entry, error) {
	page, err := stealth.Page(b.browser.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("create page for %s: %w", store.ID, err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			b.logger.Warn("page close failed", slog.String("store_id", store.ID), slog.String("error", err.Error()))
		}
	}()

	b.setStoreContext(ctx, page, store)

	entries := make([]obscache.Entry, 0, len(seeds))
	for j, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return entries, err
		}
		opts.progress("product_check", j+1, len(seeds))
		if !opts.skuAllowed(seed.SKU) {
			continue
		}
		if opts.Category != "" && seed.Category != opts.Category {
			continue
		}

		cached, err := b.deps.Cache.Get(ctx, store.ID, seed.URL, 0)
		if err != nil {
			b.logger.Warn("observation cache read failed", slog.String("error", err.Error()))
		}
		if cached != nil {
			entries = append(entries, *cached)
			continue
		}

		entry := b.verifyProduct(ctx, page, store, seed)
		if _, err := b.deps.Cache.Put(ctx, entry); err != nil {
			b.logger.Warn("observation cache write failed", slog.String("error", err.Error()))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// setStoreContext points the session at the target store so prices and
// stock reflect it. Best effort: a failure degrades accuracy, not the scan.
func (b *Browser) setStoreContext(ctx context.Context, page *rod.Page, store StoreRef) {
	url := storeContextURL(b.retailer, store.ID)
	if url == "" {
		return
	}
	p := page.Timeout(b.deps.Browser.PageTimeout)
	if err := p.Navigate(url); err != nil {
		b.logger.Warn("store context navigation failed",
			slog.String("store_id", store.ID), slog.String("error", err.Error()))
		return
	}
	if err := p.WaitLoad(); err != nil {
		b.logger.Warn("store context load failed",
			slog.String("store_id", store.ID), slog.String("error", err.Error()))
	}
}

func storeContextURL(retailer, storeID string) string {
	switch retailer {
	case "home-depot":
		return "https://www.homedepot.com/l/" + strings.TrimPrefix(storeID, "hd-")
	case "ace-hardware":
		return "https://www.acehardware.com/store-details/" + strings.TrimPrefix(storeID, "ace-")
	default:
		return ""
	}
}

var priceRe = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]{2})?)`)

// verifyProduct visits one seed URL and inspects the page for a clearance
// indicator. Any failure is absorbed into a negative, retriable
// observation; a single bad product page never fails the scan.
func (b *Browser) verifyProduct(ctx context.Context, page *rod.Page, store StoreRef, seed seedProduct) (entry obscache.Entry) {
	entry = obscache.Entry{
		StoreID:     store.ID,
		URL:         seed.URL,
		SKU:         seed.SKU,
		ProductName: seed.Name,
		Source:      config.ModeAlt,
		ObservedAt:  time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("product verification panic",
				slog.String("store_id", store.ID),
				slog.String("url", seed.URL),
				slog.Any("panic", r))
			entry.Failed = true
			entry.Retriable = true
			entry.IsOnClearance = false
		}
	}()

	if err := b.deps.Limiter.Acquire(ctx); err != nil {
		entry.Failed = true
		entry.Retriable = true
		return entry
	}

	p := page.Timeout(b.deps.Browser.PageTimeout)
	if err := p.Navigate(seed.URL); err != nil {
		b.logger.Warn("product navigation failed",
			slog.String("url", seed.URL), slog.String("error", err.Error()))
		entry.Failed = true
		entry.Retriable = true
		return entry
	}
	if err := p.WaitLoad(); err != nil {
		b.logger.Warn("product load incomplete",
			slog.String("url", seed.URL), slog.String("error", err.Error()))
	}

	body := pageBodyText(p)
	lower := strings.ToLower(body)

	entry.InStock = !strings.Contains(lower, "out of stock")
	if strings.Contains(lower, "store pickup only") || strings.Contains(lower, "in store only") {
		entry.DeliveryMessage = "Store pickup only"
	}

	if !strings.Contains(lower, "clearance") {
		// Negative result, cached so the TTL window suppresses re-visits.
		entry.IsOnClearance = false
		return entry
	}
	entry.IsOnClearance = true

	price, was, found := extractPrices(body)
	if !found {
		// Clearance badge with no visible price: in-store pricing.
		entry.PriceSuppressed = true
		return entry
	}
	entry.ClearancePrice = price
	entry.WasPrice = was
	entry.SavePercent = savePercent(price, was)
	return entry
}

func pageBodyText(p *rod.Page) string {
	body, err := p.Element("body")
	if err != nil {
		return ""
	}
	text, err := body.Text()
	if err != nil {
		return ""
	}
	return text
}

// extractPrices pulls the first two dollar amounts from the page text. The
// first is the current price; a higher second amount is the "was" price.
func extractPrices(body string) (price, was float64, ok bool) {
	matches := priceRe.FindAllStringSubmatch(body, 2)
	if len(matches) == 0 {
		return 0, 0, false
	}
	price = parsePrice(matches[0][1])
	if price <= 0 {
		return 0, 0, false
	}
	if len(matches) > 1 {
		if w := parsePrice(matches[1][1]); w > price {
			was = w
		}
	}
	return price, was, true
}

func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// entryToProduct applies the scan filters to a cached or fresh observation.
func entryToProduct(e obscache.Entry, store StoreRef, opts Options) (Product, bool) {
	if e.Failed {
		return Product{}, false
	}
	if opts.ClearanceOnly && !e.IsOnClearance {
		return Product{}, false
	}
	if opts.MaxPrice > 0 && !e.PriceSuppressed && e.ClearancePrice > opts.MaxPrice {
		return Product{}, false
	}

	name := e.ProductName
	if name == "" {
		name = e.URL
	}
	return Product{
		StoreID:         store.ID,
		StoreName:       store.Name,
		Name:            name,
		SKU:             e.SKU,
		URL:             e.URL,
		ClearancePrice:  e.ClearancePrice,
		WasPrice:        e.WasPrice,
		SavePercent:     e.SavePercent,
		InStock:         e.InStock,
		DeliveryMessage: e.DeliveryMessage,
		IsOnClearance:   e.IsOnClearance,
		PriceSuppressed: e.PriceSuppressed,
		Source:          e.Source,
		ObservedAt:      e.ObservedAt,
		InStorePurchase: e.PriceSuppressed,
	}, true
}
