package optimizer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// planRuns counts finished planning runs.
	planRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_runs_total",
		Help: "Total number of planning runs by strategy and stop reason",
	}, []string{"strategy", "stop_reason"})

	// planErrors counts runs that failed.
	planErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_run_errors_total",
		Help: "Total number of failed planning runs by error kind",
	}, []string{"kind"})

	planDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_run_duration_seconds",
		Help:    "Wall-clock time of planning runs by strategy",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"strategy"})

	iterationCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_iterations_count",
		Help:    "Search iterations completed per run",
		Buckets: prometheus.ExponentialBuckets(10, 4, 8),
	})

	treeNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_tree_nodes_count",
		Help:    "Search tree size per run",
		Buckets: prometheus.ExponentialBuckets(10, 4, 9),
	})

	// savingsRatio is best plan savings over the no-coupon baseline.
	savingsRatio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_savings_ratio",
		Help:    "Savings of the best plan relative to the baseline",
		Buckets: []float64{0, 0.01, 0.05, 0.1, 0.2, 0.3, 0.5, 1.0},
	})

	workerCrashes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planner_worker_crashes_total",
		Help: "Total number of search workers that panicked",
	})

	catalogItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_catalog_items_count",
		Help:    "Number of cart items per planning run",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
	})
)

// MetricsRecorder provides methods to record planner metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordRun records a finished run.
func (m *MetricsRecorder) RecordRun(res *Result) {
	planRuns.WithLabelValues(string(res.Strategy), string(res.StopReason)).Inc()
	planDuration.WithLabelValues(string(res.Strategy)).Observe(res.Duration.Seconds())
	iterationCount.Observe(float64(res.Iterations))
	treeNodes.Observe(float64(res.Nodes))
	if res.Baseline > 0 && len(res.Plans) > 0 {
		savingsRatio.Observe(float64(res.Plans[0].Savings) / float64(res.Baseline))
	}
}

// RecordError records a failed run.
func (m *MetricsRecorder) RecordError(kind string) {
	planErrors.WithLabelValues(kind).Inc()
}

// RecordCatalogSize records the number of items in a planned cart.
func (m *MetricsRecorder) RecordCatalogSize(items int) {
	catalogItems.Observe(float64(items))
}

// RecordWorkerCrash records a panicking worker.
func (m *MetricsRecorder) RecordWorkerCrash() {
	workerCrashes.Inc()
}
