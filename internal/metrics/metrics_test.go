package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveScore(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveScore(KindProject, 30)
	m.ObserveScore(KindProject, 45)
	m.ObserveFailure(KindEvaluation)
	m.ObserveWarning("AXIS")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ScoresTotal.WithLabelValues(KindProject, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScoresTotal.WithLabelValues(KindEvaluation, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WeightWarnings.WithLabelValues("AXIS")))
}

func TestMarkRescore(t *testing.T) {
	m := New(prometheus.NewRegistry())
	at := time.Unix(1_700_000_000, 0)

	m.MarkRescore(at, 3)

	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.RescoreLastRun))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RescoredProjects))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveScore(KindProject, 1)
		m.ObserveFailure(KindProject)
		m.ObserveWarning("CRITERION")
		m.MarkRescore(time.Now(), 1)
	})
}

func TestRegisterTwicePanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
