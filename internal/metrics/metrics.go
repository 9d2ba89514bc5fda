// Package metrics holds the Prometheus collectors shared across the
// dispatch pipeline. Everything registers on the default registry so
// the server only has to mount promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchesTotal counts completed dispatches by serving layer and
	// classified intent.
	DispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "switchboard",
		Name:      "dispatches_total",
		Help:      "Completed dispatches by layer and intent.",
	}, []string{"layer", "intent"})

	// DispatchLatency observes end-to-end handling time per layer.
	DispatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "switchboard",
		Name:      "dispatch_latency_seconds",
		Help:      "End-to-end dispatch latency by serving layer.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"layer"})

	// CacheEventsTotal counts cache hits, misses, writes, and evictions.
	CacheEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "switchboard",
		Name:      "cache_events_total",
		Help:      "Response cache events.",
	}, []string{"event"})

	// TokensSavedTotal accumulates tokens served from cache instead of
	// a model.
	TokensSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "switchboard",
		Name:      "cache_tokens_saved_total",
		Help:      "Tokens served from the response cache.",
	})

	// ProviderHealthGauge exports tracked provider health as a number:
	// 2 green, 1 yellow, 0 red.
	ProviderHealthGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "switchboard",
		Name:      "provider_health",
		Help:      "Provider rate-limit health (2 green, 1 yellow, 0 red).",
	}, []string{"provider"})

	// RateLimitHitsTotal counts explicit 429 rejections per provider.
	RateLimitHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "switchboard",
		Name:      "rate_limit_hits_total",
		Help:      "HTTP 429 responses received per provider.",
	}, []string{"provider"})

	// EstimatedCostUSD accumulates estimated spend per model.
	EstimatedCostUSD = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "switchboard",
		Name:      "estimated_cost_usd_total",
		Help:      "Estimated cloud spend in USD per model.",
	}, []string{"model"})

	// BreakerTripsTotal counts circuit breaker trips per dependency.
	BreakerTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "switchboard",
		Name:      "breaker_trips_total",
		Help:      "Circuit breaker trips per dependency.",
	}, []string{"dependency"})
)

// SetProviderHealth translates a status string into the gauge scale.
func SetProviderHealth(provider, status string) {
	var v float64
	switch status {
	case "green":
		v = 2
	case "yellow":
		v = 1
	}
	ProviderHealthGauge.WithLabelValues(provider).Set(v)
}
