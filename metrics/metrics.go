package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Result cache
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_cache_requests_total",
			Help: "Result cache lookups by outcome (hit, miss, stale)",
		},
		[]string{"cache", "result"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_cache_invalidations_total",
			Help: "Number of full result cache namespace invalidations",
		},
		[]string{"cache"},
	)

	// Query execution
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_query_duration_seconds",
			Help:    "Duration of uncached discovery queries by ranking strategy",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"strategy"},
	)

	DegradedResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_degraded_results_total",
			Help: "Queries answered with an empty page because a collaborator failed",
		},
		[]string{"stage"},
	)

	// Circuit breakers
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "discovery_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	BreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_circuit_breaker_requests_total",
			Help: "Calls through a circuit breaker by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)
)
