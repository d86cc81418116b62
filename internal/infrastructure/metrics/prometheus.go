// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "musicgate"

var (
	// CacheOperationsTotal tracks stream cache operations.
	// Labels:
	//   - operation: get, set
	//   - namespace: metadata, stream_url
	//   - status: hit, miss, success, error
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of stream cache operations",
		},
		[]string{"operation", "namespace", "status"},
	)

	// ExtractorRequestsTotal tracks extractor invocations by outcome.
	// Labels:
	//   - status: success, rate_limited, no_stream, error
	ExtractorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractor_requests_total",
			Help:      "Total number of extractor invocations",
		},
		[]string{"status"},
	)

	// CircuitBreakerState exposes the breaker state as a gauge
	// (0=closed, 1=half_open, 2=open).
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=closed, 1=half_open, 2=open)",
		},
	)

	// SingleflightRequestsTotal tracks resolve coalescing behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight resolve requests",
		},
		[]string{"result"},
	)

	// EnrichmentItemsTotal tracks per-item enrichment outcomes.
	// Labels:
	//   - status: enriched, failed, skipped
	EnrichmentItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_items_total",
			Help:      "Total number of items processed by the enrichment pipeline",
		},
		[]string{"status"},
	)

	// PrefetchTasksTotal tracks cache-warming task outcomes.
	// Labels:
	//   - status: warmed, skipped_cached, skipped_blocked, failed, dropped
	PrefetchTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_tasks_total",
			Help:      "Total number of prefetch tasks processed",
		},
		[]string{"status"},
	)
)

// Cache operation type constants.
const (
	CacheOpGet = "get"
	CacheOpSet = "set"
)

// Cache namespace constants.
const (
	CacheNamespaceMetadata  = "metadata"
	CacheNamespaceStreamURL = "stream_url"
)

// Cache operation status constants.
const (
	CacheStatusHit     = "hit"
	CacheStatusMiss    = "miss"
	CacheStatusSuccess = "success"
	CacheStatusError   = "error"
)

// Extractor status constants.
const (
	ExtractorStatusSuccess     = "success"
	ExtractorStatusRateLimited = "rate_limited"
	ExtractorStatusNoStream    = "no_stream"
	ExtractorStatusError       = "error"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)

// Enrichment status constants.
const (
	EnrichmentStatusEnriched = "enriched"
	EnrichmentStatusFailed   = "failed"
	EnrichmentStatusSkipped  = "skipped"
)

// Prefetch status constants.
const (
	PrefetchStatusWarmed         = "warmed"
	PrefetchStatusSkippedCached  = "skipped_cached"
	PrefetchStatusSkippedBlocked = "skipped_blocked"
	PrefetchStatusFailed         = "failed"
	PrefetchStatusDropped        = "dropped"
)

// breaker state gauge values.
const (
	BreakerGaugeClosed   = 0
	BreakerGaugeHalfOpen = 1
	BreakerGaugeOpen     = 2
)
