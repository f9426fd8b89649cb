package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts finished scans by retailer and terminal status.
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealradar_scans_total",
		Help: "Finished scans by retailer and terminal status.",
	}, []string{"retailer", "status"})

	// ScanDuration tracks wall time of scan execution.
	ScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dealradar_scan_duration_seconds",
		Help:    "Scan execution duration.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"retailer"})

	// ActiveScans is the number of scans currently executing.
	ActiveScans = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dealradar_active_scans",
		Help: "Scans currently executing.",
	})

	// ProviderRequestsTotal counts provider fetches by retailer, data mode
	// and outcome.
	ProviderRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealradar_provider_requests_total",
		Help: "Provider fetch attempts by retailer, mode and outcome.",
	}, []string{"retailer", "mode", "status"})

	// ObservationCacheHitsTotal counts fresh observation cache hits.
	ObservationCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dealradar_observation_cache_hits_total",
		Help: "Fresh observation cache hits.",
	})

	// ObservationCacheMissesTotal counts observation cache misses, stale
	// entries included.
	ObservationCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dealradar_observation_cache_misses_total",
		Help: "Observation cache misses, stale entries included.",
	})

	// ObservationCacheEvictionsTotal counts size-cap evictions.
	ObservationCacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dealradar_observation_cache_evictions_total",
		Help: "Observations evicted by the size cap.",
	})

	// QuotaRejectedTotal counts scan creations refused by the monthly quota.
	QuotaRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dealradar_quota_rejected_total",
		Help: "Scan creations refused by the monthly quota.",
	})

	// QueueDepth is the number of scan jobs waiting in the queue.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dealradar_scan_queue_depth",
		Help: "Scan jobs waiting in the queue.",
	})

	// BrowserActive is the number of live headless browser instances.
	BrowserActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dealradar_browser_active",
		Help: "Live headless browser instances.",
	})

	// RateLimitWaitDuration tracks how long browser visits wait on the
	// per-retailer rate limiter.
	RateLimitWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dealradar_ratelimit_wait_seconds",
		Help:    "Time spent waiting on the page visit rate limiter.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	workerPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dealradar_worker_pool_size",
		Help: "Configured scan worker pool size.",
	})
)

var initOnce sync.Once

// InitMetrics records static configuration gauges. Safe to call more than
// once; only the first call takes effect.
func InitMetrics(poolSize int) {
	initOnce.Do(func() {
		workerPoolSize.Set(float64(poolSize))
	})
}
