// Package metrics holds the Prometheus instruments for the aggregation
// pipeline. A rising fallback counter is the main signal of upstream
// provider degradation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_provider_requests_total",
		Help: "Provider adapter calls by provider and outcome.",
	}, []string{"provider", "status"})

	FallbackServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_fallback_total",
		Help: "Searches answered with synthetic fallback events.",
	})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_cache_total",
		Help: "Cache tier lookups by tier and result.",
	}, []string{"tier", "result"})

	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "events_search_duration_seconds",
		Help:    "End-to-end latency of unified event searches.",
		Buckets: prometheus.DefBuckets,
	})
)
