// Package metrics exposes Prometheus instrumentation for searches, upstream
// sources, the response cache and the HTTP API.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

var (
	// Upstream source metrics
	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookfinder_source_requests_total",
			Help: "Total number of source queries by outcome",
		},
		[]string{"source", "outcome"}, // "ok", "error", "breaker_open"
	)

	SourceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookfinder_source_duration_seconds",
			Help:    "Duration of source queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	SourceResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookfinder_source_results_total",
			Help: "Total number of records returned by each source",
		},
		[]string{"source"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bookfinder_source_breaker_state",
			Help: "Circuit breaker state per source (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	RateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookfinder_ratelimit_wait_seconds",
			Help:    "Time spent waiting for an upstream rate limiter",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
		},
		[]string{"limiter"},
	)

	// Search metrics
	Searches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookfinder_searches_total",
			Help: "Total number of aggregated searches",
		},
	)

	SearchDuplicates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookfinder_search_duplicates_total",
			Help: "Total number of records dropped as duplicates while merging",
		},
	)

	// Cache metrics
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookfinder_cache_lookups_total",
			Help: "Total number of response cache lookups by result",
		},
		[]string{"source", "result"}, // "hit", "miss"
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookfinder_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookfinder_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordSourceQuery records the outcome of a single source query.
func RecordSourceQuery(source string, records int, duration time.Duration, err error) {
	SourceDuration.WithLabelValues(source).Observe(duration.Seconds())
	SourceRequests.WithLabelValues(source, sourceOutcome(err)).Inc()
	if err == nil {
		SourceResults.WithLabelValues(source).Add(float64(records))
	}
}

func sourceOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	default:
		return "error"
	}
}

// RecordBreakerState records a circuit breaker transition.
func RecordBreakerState(source string, state gobreaker.State) {
	var v float64
	switch state {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	BreakerState.WithLabelValues(source).Set(v)
}

// RecordSearch records a completed aggregated search.
func RecordSearch(candidates, merged int) {
	Searches.Inc()
	if dropped := candidates - merged; dropped > 0 {
		SearchDuplicates.Add(float64(dropped))
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
