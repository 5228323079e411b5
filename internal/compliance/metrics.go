package compliance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Health          *prometheus.GaugeVec
	ConsentRejected *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Health: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voxguard_compliance_status",
			Help: "1 for the status reported by the latest compliance check",
		}, []string{"status"}),
		ConsentRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voxguard_consent_gate_rejections_total",
			Help: "Operations rejected for missing consent by purpose",
		}, []string{"purpose"}),
	}
}

func (m *Metrics) setStatus(current Status) {
	if m == nil {
		return
	}
	for _, st := range []Status{StatusHealthy, StatusDegraded, StatusViolation} {
		v := 0.0
		if st == current {
			v = 1
		}
		m.Health.WithLabelValues(string(st)).Set(v)
	}
}

func (m *Metrics) incRejected(purpose string) {
	if m != nil {
		m.ConsentRejected.WithLabelValues(purpose).Inc()
	}
}
