package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiCallsLatencyMs,
		aiPromptTokens,
		aiFallbacksTotal,
	)
}

var (
	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "Intent analysis latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
		},
		[]string{"provider", "model", "success"},
	)

	aiPromptTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_prompt_tokens_total",
			Help: "Sum of prompt tokens sent per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_fallbacks_total",
			Help: "Intent analyses that degraded to the raw user text.",
		},
		[]string{"provider"},
	)
)

func ObserveIntentCall(provider, model string, latencyMs int64, success bool) {
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func AddPromptTokens(provider, model string, n int) {
	if n <= 0 {
		return
	}
	aiPromptTokens.WithLabelValues(norm(provider), norm(model)).Add(float64(n))
}

func IncIntentFallback(provider string) {
	aiFallbacksTotal.WithLabelValues(norm(provider)).Inc()
}
