package obscache

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func setup(t *testing.T, maxSize int) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := slog.New(slog.NewTextHandler(discard{}, nil))
	return New(rdb, logger, time.Hour, maxSize)
}

func entry(store, url string, observedAt time.Time, clearance bool) Entry {
	return Entry{
		StoreID:        store,
		URL:            url,
		ClearancePrice: 9.88,
		WasPrice:       24.97,
		SavePercent:    60,
		InStock:        true,
		IsOnClearance:  clearance,
		Source:         "alt",
		ObservedAt:     observedAt,
	}
}

func TestGetReturnsFreshEntry(t *testing.T) {
	c := setup(t, 0)
	ctx := context.Background()

	if _, err := c.Put(ctx, entry("hd-0206", "https://x/p/1", time.Now().Add(-5*time.Minute), true)); err != nil {
		t.Fatalf("put: %v", err)
	}

	e, err := c.Get(ctx, "hd-0206", "https://x/p/1", time.Hour)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e == nil || !e.IsOnClearance || e.ClearancePrice != 9.88 {
		t.Fatalf("got %+v", e)
	}
}

func TestGetIgnoresStaleEntry(t *testing.T) {
	c := setup(t, 0)
	ctx := context.Background()

	if _, err := c.Put(ctx, entry("hd-0206", "https://x/p/1", time.Now().Add(-2*time.Hour), true)); err != nil {
		t.Fatalf("put: %v", err)
	}

	e, err := c.Get(ctx, "hd-0206", "https://x/p/1", time.Hour)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e != nil {
		t.Fatalf("stale entry returned: %+v", e)
	}
}

func TestGetPicksMostRecentWrite(t *testing.T) {
	c := setup(t, 0)
	ctx := context.Background()

	old := entry("hd-0206", "https://x/p/1", time.Now().Add(-30*time.Minute), false)
	fresh := entry("hd-0206", "https://x/p/1", time.Now().Add(-1*time.Minute), true)
	if _, err := c.Put(ctx, old); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Put(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	e, err := c.Get(ctx, "hd-0206", "https://x/p/1", time.Hour)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e == nil || !e.IsOnClearance {
		t.Fatalf("most recent write not returned: %+v", e)
	}
}

func TestGetMissForUnknownSlot(t *testing.T) {
	c := setup(t, 0)
	e, err := c.Get(context.Background(), "hd-0206", "https://x/p/none", time.Hour)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if e != nil {
		t.Fatalf("got %+v, want nil", e)
	}
}

func TestGetFreshBatch(t *testing.T) {
	c := setup(t, 0)
	ctx := context.Background()

	_, _ = c.Put(ctx, entry("hd-0206", "https://x/p/1", time.Now(), true))
	_, _ = c.Put(ctx, entry("hd-0206", "https://x/p/2", time.Now().Add(-2*time.Hour), true))
	_, _ = c.Put(ctx, entry("hd-1036", "https://x/p/1", time.Now(), false))

	keys := []Key{
		{StoreID: "hd-0206", URL: "https://x/p/1"},
		{StoreID: "hd-0206", URL: "https://x/p/2"},
		{StoreID: "hd-1036", URL: "https://x/p/1"},
		{StoreID: "hd-1036", URL: "https://x/p/9"},
	}
	got, err := c.GetFreshBatch(ctx, keys, time.Hour)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d fresh entries, want 2", len(got))
	}
	if _, ok := got[Key{StoreID: "hd-0206", URL: "https://x/p/2"}]; ok {
		t.Fatal("stale slot included in batch result")
	}
}

func TestPurgeOlderThan(t *testing.T) {
	c := setup(t, 0)
	ctx := context.Background()

	_, _ = c.Put(ctx, entry("hd-0206", "https://x/p/old", time.Now().Add(-48*time.Hour), true))
	_, _ = c.Put(ctx, entry("hd-0206", "https://x/p/new", time.Now(), true))

	n, err := c.PurgeOlderThan(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}
	if size, _ := c.Size(ctx); size != 1 {
		t.Fatalf("size = %d, want 1", size)
	}
}

func TestInvalidateStore(t *testing.T) {
	c := setup(t, 0)
	ctx := context.Background()

	_, _ = c.Put(ctx, entry("hd-0206", "https://x/p/1", time.Now(), true))
	_, _ = c.Put(ctx, entry("hd-0206", "https://x/p/2", time.Now(), true))
	_, _ = c.Put(ctx, entry("hd-1036", "https://x/p/1", time.Now(), true))

	n, err := c.InvalidateStore(ctx, "hd-0206")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if n != 2 {
		t.Fatalf("invalidated %d, want 2", n)
	}

	if e, _ := c.Get(ctx, "hd-0206", "https://x/p/1", time.Hour); e != nil {
		t.Fatal("store entry survived invalidation")
	}
	if e, _ := c.Get(ctx, "hd-1036", "https://x/p/1", time.Hour); e == nil {
		t.Fatal("other store's entry was lost")
	}
}

func TestInvalidateURL(t *testing.T) {
	c := setup(t, 0)
	ctx := context.Background()

	_, _ = c.Put(ctx, entry("hd-0206", "https://x/p/1", time.Now(), true))
	_, _ = c.Put(ctx, entry("hd-1036", "https://x/p/1", time.Now(), true))
	_, _ = c.Put(ctx, entry("hd-0206", "https://x/p/2", time.Now(), true))

	n, err := c.InvalidateURL(ctx, "https://x/p/1")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if n != 2 {
		t.Fatalf("invalidated %d, want 2", n)
	}
	if e, _ := c.Get(ctx, "hd-0206", "https://x/p/2", time.Hour); e == nil {
		t.Fatal("unrelated url entry was lost")
	}
}

func TestSizeCapEvictsOldestFirst(t *testing.T) {
	c := setup(t, 3)
	ctx := context.Background()

	base := time.Now().Add(-10 * time.Minute)
	for i := 0; i < 5; i++ {
		e := entry("hd-0206", "https://x/p/"+string(rune('a'+i)), base.Add(time.Duration(i)*time.Minute), true)
		if _, err := c.Put(ctx, e); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	size, err := c.Size(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if size != 3 {
		t.Fatalf("size = %d, want 3", size)
	}

	// The two oldest slots must be gone, the newest three intact.
	for i, wantPresent := range []bool{false, false, true, true, true} {
		e, err := c.Get(ctx, "hd-0206", "https://x/p/"+string(rune('a'+i)), time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if (e != nil) != wantPresent {
			t.Errorf("slot %d presence = %v, want %v", i, e != nil, wantPresent)
		}
	}
}
