package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "prioritization_"

// Metrics bundles scoring engine metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	ScoresTotal      *prometheus.CounterVec
	WeightWarnings   *prometheus.CounterVec
	ScoreValue       *prometheus.HistogramVec
	RescoreLastRun   prometheus.Gauge
	RescoredProjects prometheus.Counter
}

// New constructs the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on /metrics.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScoresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scores_total",
				Help: "Total score computations by kind and result",
			},
			[]string{"kind", "result"},
		),
		WeightWarnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "weight_warnings_total",
				Help: "Total weight sum warnings by hierarchy level",
			},
			[]string{"level"},
		),
		ScoreValue: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "score_value",
				Help:    "Distribution of computed scores by kind",
				Buckets: []float64{0.1, 0.25, 0.5, 0.75, 1, 5, 10, 25, 50, 75, 100, 135},
			},
			[]string{"kind"},
		),
		RescoreLastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "rescore_last_run_timestamp",
			Help: "Unix time of the last rescore pass",
		}),
		RescoredProjects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "rescored_projects_total",
			Help: "Total projects scored by the rescore runner",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.ScoresTotal,
			m.WeightWarnings,
			m.ScoreValue,
			m.RescoreLastRun,
			m.RescoredProjects,
		)
	}
	return m
}

const (
	KindEvaluation = "evaluation"
	KindProject    = "project"
)

// ObserveScore records a successful computation of the given kind.
func (m *Metrics) ObserveScore(kind string, value float64) {
	if m == nil {
		return
	}
	m.ScoresTotal.WithLabelValues(kind, "ok").Inc()
	m.ScoreValue.WithLabelValues(kind).Observe(value)
}

// ObserveFailure records a rejected or failed computation.
func (m *Metrics) ObserveFailure(kind string) {
	if m == nil {
		return
	}
	m.ScoresTotal.WithLabelValues(kind, "error").Inc()
}

func (m *Metrics) ObserveWarning(level string) {
	if m == nil {
		return
	}
	m.WeightWarnings.WithLabelValues(level).Inc()
}

// MarkRescore records a finished rescore pass that scored n projects.
func (m *Metrics) MarkRescore(at time.Time, n int) {
	if m == nil {
		return
	}
	m.RescoreLastRun.Set(float64(at.Unix()))
	m.RescoredProjects.Add(float64(n))
}
