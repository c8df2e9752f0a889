package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Upstream metrics
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamDurationSeconds *prometheus.HistogramVec
	UpstreamRetriesTotal    *prometheus.CounterVec

	// Teacher cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Extraction metrics
	ExtractionDurationSeconds *prometheus.HistogramVec
	WeeksParsedTotal          *prometheus.CounterVec

	// HTTP API metrics
	APIRequestsTotal *prometheus.CounterVec
	HTTPErrorsTotal  *prometheus.CounterVec

	// Concurrency limiter metrics
	LimiterLevel        *prometheus.GaugeVec
	LimiterWaitDuration *prometheus.HistogramVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// Upstream metrics
		UpstreamRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasir_upstream_requests_total",
				Help: "Total number of upstream requests by endpoint and status",
			},
			[]string{"endpoint", "status"}, // status: success, error, timeout, retryable
		),

		UpstreamDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glasir_upstream_duration_seconds",
				Help:    "Upstream request duration in seconds by endpoint",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30}, // matches 30s timeout
			},
			[]string{"endpoint"}, // endpoint: base, udvalg, note, teachers
		),

		UpstreamRetriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasir_upstream_retries_total",
				Help: "Total number of retried upstream attempts by endpoint and reason",
			},
			[]string{"endpoint", "reason"}, // reason: timeout, connect, status
		),

		// Teacher cache metrics
		CacheHitsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasir_cache_hits_total",
				Help: "Total number of cache hits by cache name",
			},
			[]string{"cache"},
		),

		CacheMissesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasir_cache_misses_total",
				Help: "Total number of cache misses by cache name",
			},
			[]string{"cache"},
		),

		// Extraction metrics
		ExtractionDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glasir_extraction_duration_seconds",
				Help:    "End-to-end extraction duration in seconds by kind",
				Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"kind"}, // kind: single, batch
		),

		WeeksParsedTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasir_weeks_parsed_total",
				Help: "Total number of week pages parsed by outcome",
			},
			[]string{"outcome"}, // outcome: ok, empty, degraded, error
		),

		// HTTP API metrics
		APIRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasir_api_requests_total",
				Help: "Total number of API requests by route and status code",
			},
			[]string{"route", "code"},
		),

		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasir_http_errors_total",
				Help: "Total HTTP errors returned by category",
			},
			[]string{"category"}, // category: bad_request, auth_error, upstream_error, ...
		),

		// Concurrency limiter metrics
		LimiterLevel: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "glasir_limiter_level",
				Help: "Current adaptive concurrency level by limiter",
			},
			[]string{"limiter"}, // limiter: week_fetch, homework_fetch
		),

		LimiterWaitDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "glasir_limiter_wait_duration_seconds",
				Help:    "Time spent waiting for a concurrency slot by limiter",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"limiter"},
		),

		// Singleflight metrics
		SingleflightDedupTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "glasir_singleflight_dedup_total",
				Help: "Total number of deduplicated fetches (calls that waited instead of executing)",
			},
			[]string{"group"}, // group: teacher_map
		),
	}

	return m
}

// RecordUpstreamRequest records an upstream request with status
func (m *Metrics) RecordUpstreamRequest(endpoint, status string, duration float64) {
	m.UpstreamRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.UpstreamDurationSeconds.WithLabelValues(endpoint).Observe(duration)
}

// RecordUpstreamRetry records a retried upstream attempt
func (m *Metrics) RecordUpstreamRetry(endpoint, reason string) {
	m.UpstreamRetriesTotal.WithLabelValues(endpoint, reason).Inc()
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(cache string) {
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(cache string) {
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordExtraction records an end-to-end extraction duration
func (m *Metrics) RecordExtraction(kind string, duration float64) {
	m.ExtractionDurationSeconds.WithLabelValues(kind).Observe(duration)
}

// RecordWeekParsed records a parsed week page by outcome
func (m *Metrics) RecordWeekParsed(outcome string) {
	m.WeeksParsedTotal.WithLabelValues(outcome).Inc()
}

// RecordAPIRequest records an inbound API request
func (m *Metrics) RecordAPIRequest(route, code string) {
	m.APIRequestsTotal.WithLabelValues(route, code).Inc()
}

// RecordHTTPError records an error response by category
func (m *Metrics) RecordHTTPError(category string) {
	m.HTTPErrorsTotal.WithLabelValues(category).Inc()
}

// SetLimiterLevel records the current adaptive concurrency level
func (m *Metrics) SetLimiterLevel(limiter string, level float64) {
	m.LimiterLevel.WithLabelValues(limiter).Set(level)
}

// RecordLimiterWait records time spent waiting for a concurrency slot
func (m *Metrics) RecordLimiterWait(limiter string, duration float64) {
	m.LimiterWaitDuration.WithLabelValues(limiter).Observe(duration)
}

// RecordSingleflightDedup records a deduplicated fetch
func (m *Metrics) RecordSingleflightDedup(group string) {
	m.SingleflightDedupTotal.WithLabelValues(group).Inc()
}
