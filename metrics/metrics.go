// Package metrics provides Prometheus metrics for SDK operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for SDK operations.
type Metrics struct {
	enabled bool

	// Request metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram

	// Credential refresh metrics
	refreshTotal *prometheus.CounterVec

	// Auth lifecycle metrics
	authFailuresTotal *prometheus.CounterVec

	// Query cache metrics
	cacheEntriesTotal prometheus.Gauge
	cacheHitsTotal    *prometheus.CounterVec
	cacheMissTotal    *prometheus.CounterVec
}

// New creates and registers Prometheus metrics.
// If enabled is false, returns a no-op Metrics instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}

	m.requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyhub_requests_total",
		Help: "Total backend requests",
	}, []string{"method", "status"})

	m.requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "studyhub_request_duration_seconds",
		Help:    "Backend request duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyhub_token_refresh_total",
		Help: "Total access-token refresh exchanges",
	}, []string{"result"})

	m.authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyhub_auth_failures_total",
		Help: "Total auth operation failures",
	}, []string{"op", "reason"})

	m.cacheEntriesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "studyhub_query_cache_entries",
		Help: "Current number of entries in the query cache",
	})

	m.cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyhub_query_cache_hits_total",
		Help: "Total query cache hits",
	}, []string{"kind"})

	m.cacheMissTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studyhub_query_cache_misses_total",
		Help: "Total query cache misses",
	}, []string{"kind"})

	return m
}

// RecordRequest records a completed backend request.
func (m *Metrics) RecordRequest(method, status string, durationSeconds float64) {
	if !m.enabled {
		return
	}
	m.requestsTotal.WithLabelValues(method, status).Inc()
	m.requestDuration.Observe(durationSeconds)
}

// RecordRefresh records a token refresh exchange outcome.
func (m *Metrics) RecordRefresh(result string) {
	if !m.enabled {
		return
	}
	m.refreshTotal.WithLabelValues(result).Inc()
}

// RecordAuthFailure records a failed auth operation.
func (m *Metrics) RecordAuthFailure(op, reason string) {
	if !m.enabled {
		return
	}
	m.authFailuresTotal.WithLabelValues(op, reason).Inc()
}

// RecordCacheHit records a query cache hit.
func (m *Metrics) RecordCacheHit(kind string) {
	if !m.enabled {
		return
	}
	m.cacheHitsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a query cache miss.
func (m *Metrics) RecordCacheMiss(kind string) {
	if !m.enabled {
		return
	}
	m.cacheMissTotal.WithLabelValues(kind).Inc()
}

// SetCacheSize sets the current query cache size.
func (m *Metrics) SetCacheSize(size float64) {
	if !m.enabled {
		return
	}
	m.cacheEntriesTotal.Set(size)
}
