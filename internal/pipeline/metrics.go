package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "competitor_stage_duration_seconds",
			Help:    "Duration of discovery pipeline stages in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"stage"},
	)

	aiCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competitor_ai_calls_total",
			Help: "Inference calls by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	searchQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competitor_search_queries_total",
			Help: "Search-results API queries by outcome",
		},
		[]string{"outcome"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "competitor_runs_total",
			Help: "Discovery runs by variant and outcome",
		},
		[]string{"variant", "outcome"},
	)

	competitorsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "competitor_results_count",
			Help:    "Number of competitors returned per successful run",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7},
		},
	)
)

// observeStage records the time elapsed since start for stage.
func observeStage(stage string, start time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
