package obscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"dealradar/internal/pkg/metrics"
)

const (
	seqKey   = "dealradar:obs:seq"
	indexKey = "dealradar:obs:index"
)

// Entry is one cached verification of a product at a store, independent of
// any scan. Negative outcomes (no clearance, failed lookup) are cached too,
// so a flaky product page is not re-visited within the freshness window.
type Entry struct {
	StoreID         string    `json:"store_id"`
	URL             string    `json:"url"`
	SKU             string    `json:"sku,omitempty"`
	ProductName     string    `json:"product_name,omitempty"`
	ClearancePrice  float64   `json:"clearance_price"`
	WasPrice        float64   `json:"was_price"`
	SavePercent     int       `json:"save_percent"`
	InStock         bool      `json:"in_stock"`
	DeliveryMessage string    `json:"delivery_message,omitempty"`
	IsOnClearance   bool      `json:"is_on_clearance"`
	PriceSuppressed bool      `json:"price_suppressed"`
	Source          string    `json:"source"`
	ObservedAt      time.Time `json:"observed_at"`
	Failed          bool      `json:"failed"`
	Retriable       bool      `json:"retriable"`
}

// Key identifies an entry's logical cache slot.
type Key struct {
	StoreID string
	URL     string
}

// Cache stores observations in Redis. The newest entry per (store, url) is
// authoritative; older rows for the same slot linger until purged or
// evicted, which is harmless since reads always pick the most recent.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger

	ttl     time.Duration
	maxSize int
}

// New builds the cache. ttl is the freshness window applied when callers
// pass maxAge <= 0; maxSize caps the total entry count, with the oldest
// evicted first.
func New(rdb *redis.Client, logger *slog.Logger, ttl time.Duration, maxSize int) *Cache {
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	return &Cache{rdb: rdb, logger: logger, ttl: ttl, maxSize: maxSize}
}

// TTL returns the default freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

func entryKey(id int64) string { return "dealradar:obs:entry:" + strconv.FormatInt(id, 10) }

func slotKey(storeID, url string) string {
	return "dealradar:obs:slot:" + storeID + "|" + url
}

func storeIndexKey(storeID string) string { return "dealradar:obs:store:" + storeID }

func urlIndexKey(url string) string { return "dealradar:obs:url:" + url }

// Put stores an observation and returns its id. The caller stamps
// ObservedAt; a zero timestamp gets the current time.
func (c *Cache) Put(ctx context.Context, e Entry) (int64, error) {
	if e.StoreID == "" || e.URL == "" {
		return 0, fmt.Errorf("observation needs store id and url")
	}
	if e.ObservedAt.IsZero() {
		e.ObservedAt = time.Now()
	}

	id, err := c.rdb.Incr(ctx, seqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("obscache seq: %w", err)
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return 0, fmt.Errorf("obscache marshal: %w", err)
	}

	score := float64(e.ObservedAt.UnixMilli())
	member := strconv.FormatInt(id, 10)

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, entryKey(id), raw, 0)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: score, Member: member})
	pipe.ZAdd(ctx, slotKey(e.StoreID, e.URL), redis.Z{Score: score, Member: member})
	pipe.SAdd(ctx, storeIndexKey(e.StoreID), member)
	pipe.SAdd(ctx, urlIndexKey(e.URL), member)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("obscache put: %w", err)
	}

	if c.maxSize > 0 {
		if err := c.EnforceSizeCap(ctx); err != nil {
			c.logger.Warn("obscache size cap enforcement failed", "error", err.Error())
		}
	}
	return id, nil
}

// Get returns the most recent entry for (storeID, url) if it is fresher
// than maxAge. maxAge <= 0 uses the configured default. Expiry is lazy: a
// stale entry is reported as a miss, not deleted.
func (c *Cache) Get(ctx context.Context, storeID, url string, maxAge time.Duration) (*Entry, error) {
	if maxAge <= 0 {
		maxAge = c.ttl
	}

	ids, err := c.rdb.ZRevRange(ctx, slotKey(storeID, url), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("obscache slot read: %w", err)
	}
	if len(ids) == 0 {
		metrics.ObservationCacheMissesTotal.Inc()
		return nil, nil
	}

	e, err := c.loadEntry(ctx, ids[0])
	if err != nil {
		return nil, err
	}
	if e == nil || time.Since(e.ObservedAt) > maxAge {
		metrics.ObservationCacheMissesTotal.Inc()
		return nil, nil
	}
	metrics.ObservationCacheHitsTotal.Inc()
	return e, nil
}

// GetFreshBatch returns the most recent fresh entry per requested slot.
// Slots with no fresh entry are absent from the result.
func (c *Cache) GetFreshBatch(ctx context.Context, keys []Key, maxAge time.Duration) (map[Key]*Entry, error) {
	out := make(map[Key]*Entry, len(keys))
	for _, k := range keys {
		e, err := c.Get(ctx, k.StoreID, k.URL, maxAge)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out[k] = e
		}
	}
	return out, nil
}

func (c *Cache) loadEntry(ctx context.Context, member string) (*Entry, error) {
	id, err := strconv.ParseInt(member, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("obscache bad member %q", member)
	}
	raw, err := c.rdb.Get(ctx, entryKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("obscache entry read: %w", err)
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, fmt.Errorf("obscache unmarshal: %w", err)
	}
	return &e, nil
}

// deleteMembers removes entries and every index reference to them.
func (c *Cache) deleteMembers(ctx context.Context, members []string) (int, error) {
	deleted := 0
	for _, member := range members {
		e, err := c.loadEntry(ctx, member)
		if err != nil {
			return deleted, err
		}

		id, _ := strconv.ParseInt(member, 10, 64)
		pipe := c.rdb.TxPipeline()
		pipe.Del(ctx, entryKey(id))
		pipe.ZRem(ctx, indexKey, member)
		if e != nil {
			pipe.ZRem(ctx, slotKey(e.StoreID, e.URL), member)
			pipe.SRem(ctx, storeIndexKey(e.StoreID), member)
			pipe.SRem(ctx, urlIndexKey(e.URL), member)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return deleted, fmt.Errorf("obscache delete: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

// PurgeOlderThan removes every entry observed before the cutoff. Used by
// the retention janitor.
func (c *Cache) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	members, err := c.rdb.ZRangeByScore(ctx, indexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("obscache purge scan: %w", err)
	}
	return c.deleteMembers(ctx, members)
}

// InvalidateStore drops every cached observation for a store.
func (c *Cache) InvalidateStore(ctx context.Context, storeID string) (int, error) {
	members, err := c.rdb.SMembers(ctx, storeIndexKey(storeID)).Result()
	if err != nil {
		return 0, fmt.Errorf("obscache store invalidation: %w", err)
	}
	return c.deleteMembers(ctx, members)
}

// InvalidateURL drops every cached observation for a product URL across all
// stores.
func (c *Cache) InvalidateURL(ctx context.Context, url string) (int, error) {
	members, err := c.rdb.SMembers(ctx, urlIndexKey(url)).Result()
	if err != nil {
		return 0, fmt.Errorf("obscache url invalidation: %w", err)
	}
	return c.deleteMembers(ctx, members)
}

// Size returns the total number of cached entries.
func (c *Cache) Size(ctx context.Context) (int64, error) {
	n, err := c.rdb.ZCard(ctx, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("obscache size: %w", err)
	}
	return n, nil
}

// EnforceSizeCap evicts the oldest entries until the total count is within
// the configured ceiling.
func (c *Cache) EnforceSizeCap(ctx context.Context) error {
	if c.maxSize <= 0 {
		return nil
	}
	total, err := c.Size(ctx)
	if err != nil {
		return err
	}
	excess := total - int64(c.maxSize)
	if excess <= 0 {
		return nil
	}

	members, err := c.rdb.ZRange(ctx, indexKey, 0, excess-1).Result()
	if err != nil {
		return fmt.Errorf("obscache eviction scan: %w", err)
	}
	evicted, err := c.deleteMembers(ctx, members)
	if evicted > 0 {
		metrics.ObservationCacheEvictionsTotal.Add(float64(evicted))
		c.logger.Info("obscache evicted oldest entries", "count", evicted)
	}
	return err
}
