package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.Observe(Run{Strategy: "sequential", Tasks: 10, Homologous: 4, Predictions: 3, Failures: 1, Duration: 20 * time.Millisecond})
	r.Observe(Run{Strategy: "sequential", Tasks: 10, Homologous: 4, Predictions: 3, Duration: 10 * time.Millisecond})
	r.Observe(Run{Strategy: "pool", Tasks: 10, Homologous: 4, Predictions: 3})

	assert.Equal(t, 20.0, testutil.ToFloat64(r.tasks.WithLabelValues("sequential")))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.homologous.WithLabelValues("sequential")))
	assert.Equal(t, 6.0, testutil.ToFloat64(r.predictions.WithLabelValues("sequential")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.failures.WithLabelValues("sequential")))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.tasks.WithLabelValues("pool")))

	n, err := testutil.GatherAndCount(reg, "promoscan_run_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() { r.Observe(Run{Strategy: "x", Tasks: 1}) })
}

func TestNewRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewRecorder(reg)
	assert.Panics(t, func() { NewRecorder(reg) })
}
