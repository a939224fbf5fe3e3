package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysisRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "options_analyzer_runs_total",
			Help: "Total number of analysis runs",
		},
		[]string{"source"}, // telegram|http|cli
	)

	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "options_analyzer_run_duration_seconds",
			Help:    "Analysis run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	PositionsEvaluated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "options_analyzer_positions_total",
			Help: "Evaluated positions by direction",
		},
		[]string{"direction"},
	)

	DegradedPositions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "options_analyzer_degraded_positions_total",
			Help: "Positions where at least one step fell back to zero",
		},
	)

	MarketDataRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "options_analyzer_marketdata_requests_total",
			Help: "Market data requests by endpoint and status",
		},
		[]string{"endpoint", "status"}, // status: ok|error|cache_hit
	)

	MarketDataLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "options_analyzer_marketdata_latency_seconds",
			Help:    "Market data request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			AnalysisRuns,
			AnalysisDuration,
			PositionsEvaluated,
			DegradedPositions,
			MarketDataRequests,
			MarketDataLatency,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
