package patient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ehr/mpi/internal/platform/mpi"
)

// Metrics instruments duplicate detection and the registration gate.
type Metrics struct {
	decisions *prometheus.CounterVec
	scores    *prometheus.HistogramVec
	matches   prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mpi",
			Name:      "registration_decisions_total",
			Help:      "Registration gate outcomes by decision.",
		}, []string{"decision"}),
		scores: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mpi",
			Name:      "match_score",
			Help:      "Composite scores of reported duplicate matches.",
			Buckets:   []float64{40, 50, 60, 70, 80, 90, 95, 100},
		}, []string{"confidence"}),
		matches: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mpi",
			Name:      "duplicate_matches",
			Help:      "Matches reported per duplicate check.",
			Buckets:   prometheus.LinearBuckets(0, 2, 11),
		}),
	}
}

func (m *Metrics) observeReport(r *mpi.DuplicateCheckReport) {
	if m == nil || r == nil {
		return
	}
	m.matches.Observe(float64(len(r.Matches)))
	for _, match := range r.Matches {
		m.scores.WithLabelValues(string(match.Confidence)).Observe(float64(match.Score))
	}
}

// decision labels are the gate decisions plus "OVERRIDDEN".
func (m *Metrics) observeDecision(decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
}
