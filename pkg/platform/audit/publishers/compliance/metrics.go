package compliance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for compliance audit persistence.
type Metrics struct {
	EventsEmitted    prometheus.Counter
	PersistFailures  prometheus.Counter
	PersistDuration  prometheus.Histogram
	EscalationsSaved prometheus.Counter
	EscalationDepth  prometheus.Gauge
}

// NewMetrics registers the publisher metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EventsEmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "voxguard_audit_entries_emitted_total",
			Help: "Total number of audit entries persisted",
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "voxguard_audit_persist_failures_total",
			Help: "Total number of audit writes that failed and were escalated",
		}),
		PersistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxguard_audit_persist_duration_seconds",
			Help:    "Latency of synchronous audit writes",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		EscalationsSaved: f.NewCounter(prometheus.CounterOpts{
			Name: "voxguard_audit_escalations_recovered_total",
			Help: "Total number of escalated audit entries persisted on retry",
		}),
		EscalationDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "voxguard_audit_escalation_depth",
			Help: "Audit entries currently waiting for a persistence retry",
		}),
	}
}

func (m *Metrics) IncEventsEmitted() {
	m.EventsEmitted.Inc()
}

func (m *Metrics) IncPersistFailures() {
	m.PersistFailures.Inc()
}

func (m *Metrics) ObservePersistDuration(seconds float64) {
	m.PersistDuration.Observe(seconds)
}
