package sanitizer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Detections *prometheus.CounterVec
	Confidence *prometheus.HistogramVec
	Residual   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Detections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voxguard_pii_detections_total",
			Help: "PII instances redacted, by category and sanitization mode",
		}, []string{"type", "mode"}),
		Confidence: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voxguard_sanitizer_confidence",
			Help:    "Confidence score assigned to sanitized output (0-100)",
			Buckets: []float64{10, 25, 50, 70, 80, 90, 95, 100},
		}, []string{"mode"}),
		Residual: f.NewCounter(prometheus.CounterOpts{
			Name: "voxguard_sanitizer_residual_matches_total",
			Help: "PII matches found by the final-pass validator after redaction",
		}),
	}
}

func (m *Metrics) observe(mode string, counts map[string]int, confidence float64) {
	if m == nil {
		return
	}
	for t, n := range counts {
		m.Detections.WithLabelValues(t, mode).Add(float64(n))
	}
	m.Confidence.WithLabelValues(mode).Observe(confidence)
}

func (m *Metrics) incResidual(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Residual.Add(float64(n))
}
