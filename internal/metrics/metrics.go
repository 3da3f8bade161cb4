// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sov"

var (
	// ProviderCalls counts provider attempts by outcome. One retry loop
	// increments this once per attempt, not once per call.
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "calls_total",
		Help:      "Provider call attempts by provider, model and outcome.",
	}, []string{"provider", "model", "outcome"})

	// ProviderRetries counts scheduled retry waits.
	ProviderRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "retries_total",
		Help:      "Retries scheduled after transient provider failures.",
	}, []string{"provider", "model"})

	// ProviderTokens counts tokens by direction (input or output).
	ProviderTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "tokens_total",
		Help:      "Tokens consumed by provider, model and direction.",
	}, []string{"provider", "model", "direction"})

	// ProviderCost accumulates estimated spend in USD.
	ProviderCost = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "cost_usd_total",
		Help:      "Estimated provider cost in USD.",
	}, []string{"provider", "model"})

	// BreakerTransitions counts circuit breaker state changes.
	BreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "provider",
		Name:      "breaker_transitions_total",
		Help:      "Circuit breaker state transitions by breaker name and new state.",
	}, []string{"name", "to"})

	// StageDuration observes wall time per pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Duration of each analysis pipeline stage.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"stage"})

	// AnalysisRuns counts finished runs by outcome.
	AnalysisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Completed analysis runs by outcome.",
	}, []string{"outcome"})
)

// Handler returns the scrape handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
