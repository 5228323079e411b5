package voice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"voxguard/internal/voice/models"
)

type Metrics struct {
	Deletions       *prometheus.CounterVec
	DeletionLatency prometheus.Histogram
	Sweeps          *prometheus.CounterVec
	Outstanding     *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Deletions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voxguard_voice_deletions_total",
			Help: "Voice artifact deletion attempts by outcome",
		}, []string{"outcome"}),
		DeletionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxguard_voice_deletion_latency_seconds",
			Help:    "Time from processing completion to deletion",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120, 300, 900},
		}),
		Sweeps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voxguard_voice_sweeps_total",
			Help: "Deletion sweeps by kind",
		}, []string{"kind"}),
		Outstanding: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voxguard_voice_artifacts",
			Help: "Tracked voice artifacts by status",
		}, []string{"status"}),
	}
}

func (m *Metrics) incDeletion(outcome string) {
	if m != nil {
		m.Deletions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) observeLatency(seconds float64) {
	if m != nil {
		m.DeletionLatency.Observe(seconds)
	}
}

func (m *Metrics) incSweep(kind string) {
	if m != nil {
		m.Sweeps.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) setCounts(counts map[models.Status]int) {
	if m == nil {
		return
	}
	for _, st := range []models.Status{models.StatusTracked, models.StatusProcessed, models.StatusScheduledDeletion, models.StatusDeleted, models.StatusError} {
		m.Outstanding.WithLabelValues(st.String()).Set(float64(counts[st]))
	}
}
