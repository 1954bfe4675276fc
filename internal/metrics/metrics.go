// Package metrics exposes Prometheus collectors for scan runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run is the summary of one strategy run.
type Run struct {
	Strategy    string
	Tasks       int
	Homologous  int
	Predictions int
	Failures    int
	Duration    time.Duration
}

// Recorder records run summaries. A nil *Recorder discards everything.
type Recorder struct {
	tasks       *prometheus.CounterVec
	homologous  *prometheus.CounterVec
	predictions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewRecorder registers the collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	label := []string{"strategy"}
	return &Recorder{
		tasks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "promoscan_tasks_total",
			Help: "Comparison tasks executed.",
		}, label),
		homologous: f.NewCounterVec(prometheus.CounterOpts{
			Name: "promoscan_homologous_total",
			Help: "Tasks whose candidate gene was homologous to the reference.",
		}, label),
		predictions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "promoscan_predictions_total",
			Help: "Promoter predictions merged into the consensus.",
		}, label),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "promoscan_task_failures_total",
			Help: "Tasks that failed in an oracle.",
		}, label),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "promoscan_run_duration_seconds",
			Help:    "Wall time of the execute phase.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4.4min
		}, label),
	}
}

// Observe adds one run.
func (r *Recorder) Observe(run Run) {
	if r == nil {
		return
	}
	r.tasks.WithLabelValues(run.Strategy).Add(float64(run.Tasks))
	r.homologous.WithLabelValues(run.Strategy).Add(float64(run.Homologous))
	r.predictions.WithLabelValues(run.Strategy).Add(float64(run.Predictions))
	r.failures.WithLabelValues(run.Strategy).Add(float64(run.Failures))
	r.duration.WithLabelValues(run.Strategy).Observe(run.Duration.Seconds())
}
