package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Runs       *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	QueueDepth prometheus.Gauge
	Dropped    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voxguard_scheduler_runs_total",
			Help: "Recurring task and queued job runs by name and outcome",
		}, []string{"name", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voxguard_scheduler_run_duration_seconds",
			Help:    "Run duration of recurring tasks and queued jobs",
			Buckets: prometheus.DefBuckets,
		}, []string{"name"}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "voxguard_scheduler_queue_depth",
			Help: "Jobs waiting in the background queue",
		}),
		Dropped: f.NewCounter(prometheus.CounterOpts{
			Name: "voxguard_scheduler_jobs_rejected_total",
			Help: "Jobs rejected because the queue was full or stopped",
		}),
	}
}

func (m *Metrics) observe(name string, err error, seconds float64) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.Runs.WithLabelValues(name, outcome).Inc()
	m.Duration.WithLabelValues(name).Observe(seconds)
}

func (m *Metrics) setDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}
