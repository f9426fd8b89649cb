package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"dealradar/internal/config"
	"dealradar/internal/obscache"
)

func TestFactorySelectsVariantByMode(t *testing.T) {
	deps := Deps{Logger: testLogger()}

	p, err := New("home-depot", config.ModeMock, deps)
	if err != nil {
		t.Fatalf("mock: %v", err)
	}
	if _, ok := p.(*Mock); !ok {
		t.Fatalf("got %T, want *Mock", p)
	}

	p, err = New("home-depot", config.ModeAlt, deps)
	if err != nil {
		t.Fatalf("alt: %v", err)
	}
	if _, ok := p.(*Browser); !ok {
		t.Fatalf("got %T, want *Browser", p)
	}

	p, err = New("home-depot", config.ModeAPI, deps)
	if err != nil {
		t.Fatalf("api: %v", err)
	}
	if _, ok := p.(*API); !ok {
		t.Fatalf("got %T, want *API", p)
	}

	if _, err := New("home-depot", "carrier-pigeon", deps); err == nil {
		t.Fatal("unknown mode accepted")
	}
}

func TestKillswitchForcesMock(t *testing.T) {
	cfg := config.ProvidersConfig{
		HomeDepotMode:       config.ModeAlt,
		HomeDepotKillswitch: true,
		AceMode:             config.ModeAPI,
	}

	if mode := cfg.ModeFor("home-depot"); mode != config.ModeMock {
		t.Fatalf("killswitched mode = %q, want mock", mode)
	}
	if mode := cfg.ModeFor("ace-hardware"); mode != config.ModeAPI {
		t.Fatalf("ace mode = %q, want api", mode)
	}

	p, err := New("home-depot", cfg.ModeFor("home-depot"), Deps{Logger: testLogger()})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if _, ok := p.(*Mock); !ok {
		t.Fatalf("got %T, want *Mock despite alt config", p)
	}
}

func TestAPIStubFailsLoud(t *testing.T) {
	a := NewAPI("home-depot")
	if err := a.Init(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("init err = %v, want ErrNotConfigured", err)
	}
	if _, err := a.FetchDeals(context.Background(), Options{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("fetch err = %v, want ErrNotConfigured", err)
	}
}

func TestExtractPrices(t *testing.T) {
	cases := []struct {
		body  string
		price float64
		was   float64
		ok    bool
	}{
		{"Clearance $49.00 was $99.00 today", 49, 99, true},
		{"Now $1,299.00 reg $1,599.00", 1299, 1599, true},
		{"Special buy $24.99", 24.99, 0, true},
		{"$99.00 marked down from $49.00", 99, 0, true}, // second amount lower, not a was-price
		{"no prices here", 0, 0, false},
	}
	for _, c := range cases {
		price, was, ok := extractPrices(c.body)
		if ok != c.ok || price != c.price || was != c.was {
			t.Errorf("extractPrices(%q) = (%v,%v,%v), want (%v,%v,%v)",
				c.body, price, was, ok, c.price, c.was, c.ok)
		}
	}
}

func TestEntryToProductFilters(t *testing.T) {
	store := StoreRef{ID: "hd-0206", Name: "Figueroa St"}
	base := obscache.Entry{
		StoreID:        "hd-0206",
		URL:            "https://x/p/1",
		ProductName:    "Drill",
		ClearancePrice: 49,
		WasPrice:       99,
		SavePercent:    50,
		IsOnClearance:  true,
		InStock:        true,
		Source:         "alt",
		ObservedAt:     time.Now(),
	}

	if _, ok := entryToProduct(base, store, Options{}); !ok {
		t.Fatal("clean entry rejected")
	}

	failed := base
	failed.Failed = true
	if _, ok := entryToProduct(failed, store, Options{}); ok {
		t.Fatal("failed observation produced a product")
	}

	negative := base
	negative.IsOnClearance = false
	if _, ok := entryToProduct(negative, store, Options{ClearanceOnly: true}); ok {
		t.Fatal("non-clearance entry passed clearance-only filter")
	}

	if _, ok := entryToProduct(base, store, Options{MaxPrice: 20}); ok {
		t.Fatal("price ceiling not applied")
	}

	suppressed := base
	suppressed.ClearancePrice = 0
	suppressed.PriceSuppressed = true
	if _, ok := entryToProduct(suppressed, store, Options{MaxPrice: 20}); !ok {
		t.Fatal("price-suppressed entry should bypass the price ceiling")
	}
}

func TestStoreContextURL(t *testing.T) {
	if got := storeContextURL("home-depot", "hd-0206"); got != "https://www.homedepot.com/l/0206" {
		t.Fatalf("got %q", got)
	}
	if got := storeContextURL("ace-hardware", "ace-90012"); got != "https://www.acehardware.com/store-details/90012" {
		t.Fatalf("got %q", got)
	}
	if got := storeContextURL("sears", "s-1"); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestSavePercent(t *testing.T) {
	cases := []struct {
		price, was float64
		want       int
	}{
		{49, 99, 50},
		{9.88, 24.97, 60},
		{100, 100, 0},
		{120, 100, 0},
		{0, 100, 0},
	}
	for _, c := range cases {
		if got := savePercent(c.price, c.was); got != c.want {
			t.Errorf("savePercent(%v,%v) = %d, want %d", c.price, c.was, got, c.want)
		}
	}
}
