package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the pipeline. A nil *Metrics records nothing.
type Metrics struct {
	Transitions  *prometheus.CounterVec
	Escalations  *prometheus.CounterVec
	StageAttempt *prometheus.CounterVec
	StageLatency *prometheus.HistogramVec
	Duplicates   prometheus.Counter
}

// NewMetrics registers the pipeline metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memolib_pipeline_transitions_total",
			Help: "Committed unit transitions by from and to status",
		}, []string{"from", "to"}),

		Escalations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memolib_pipeline_escalations_total",
			Help: "Units sent to human review by status and reason",
		}, []string{"status", "reason"}),

		StageAttempt: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memolib_pipeline_stage_attempts_total",
			Help: "Classifier and analyzer calls by stage and outcome",
		}, []string{"stage", "outcome"}), // outcome: "ok", "failed"

		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "memolib_pipeline_stage_duration_seconds",
			Help:    "Duration of a pipeline stage including retries",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),

		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Name: "memolib_pipeline_duplicates_total",
			Help: "Submissions answered from an existing unit",
		}),
	}
}

// IncrementTransition records a committed transition.
func (m *Metrics) IncrementTransition(from, to string) {
	if m != nil {
		if from == "" {
			from = "none"
		}
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}

// IncrementEscalation records a unit entering the review queue.
func (m *Metrics) IncrementEscalation(status, reason string) {
	if m != nil {
		m.Escalations.WithLabelValues(status, reason).Inc()
	}
}

// ObserveStage records one stage run: its call count, outcome, and duration.
func (m *Metrics) ObserveStage(stage string, attempts int, err error, d time.Duration) {
	if m == nil {
		return
	}
	failed := attempts
	if err == nil {
		failed--
		m.StageAttempt.WithLabelValues(stage, "ok").Inc()
	}
	if failed > 0 {
		m.StageAttempt.WithLabelValues(stage, "failed").Add(float64(failed))
	}
	m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// IncrementDuplicate records a deduplicated submission.
func (m *Metrics) IncrementDuplicate() {
	if m != nil {
		m.Duplicates.Inc()
	}
}
