package retention

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Processed   *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	RunDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Processed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voxguard_retention_records_processed_total",
			Help: "Records deleted or anonymized by retention, by category and mode",
		}, []string{"category", "mode"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voxguard_retention_failures_total",
			Help: "Retention category runs that returned an error",
		}, []string{"category"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxguard_retention_run_duration_seconds",
			Help:    "Duration of a full retention enforcement run",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
}

func (m *Metrics) observe(r CategoryResult) {
	if m == nil {
		return
	}
	if r.Error != "" {
		m.Failures.WithLabelValues(r.Category.String()).Inc()
	}
	if r.Processed > 0 {
		m.Processed.WithLabelValues(r.Category.String(), string(r.Mode)).Add(float64(r.Processed))
	}
}

func (m *Metrics) observeRun(seconds float64) {
	if m != nil {
		m.RunDuration.Observe(seconds)
	}
}
