package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegister verifies that every collector registers once and duplicates are reported.
func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New()

	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg))
}

// TestSetPhase verifies that exactly one phase series is set.
func TestSetPhase(t *testing.T) {
	m := New()
	all := []string{"uninitialized", "initialized", "loaded"}

	m.SetPhase("initialized", all)
	m.SetPhase("loaded", all)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.Phase.WithLabelValues("initialized")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Phase.WithLabelValues("loaded")))
}

// TestObserve verifies the counters fed by the coordinator and the gate.
func TestObserve(t *testing.T) {
	m := New()

	m.ObserveLoad(ResultSuccess, 10*time.Millisecond)
	m.ObserveUpdate(ResultApplied)
	m.ObserveUpdate(ResultApplied)
	m.ObserveUpdate(ResultStale)
	m.ObserveHealthCheck(true, nil)
	m.ObserveHealthCheck(false, []string{"b"})
	m.ObserveCleanupFailure()
	m.SetServiceHealthy("a", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Loads.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Updates.WithLabelValues(ResultApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Updates.WithLabelValues(ResultStale)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HealthChecks.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HealthChecks.WithLabelValues(ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProbeFailures.WithLabelValues("b")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CleanupFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ServiceHealthy.WithLabelValues("a")))

	m.ForgetService("a")
	assert.Equal(t, 0, testutil.CollectAndCount(m.ServiceHealthy))
}

// TestNilMetrics verifies that recording on a nil receiver is a no-op.
func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SetPhase("loaded", []string{"loaded"})
		m.ObserveLoad(ResultFailure, time.Second)
		m.ObserveUpdate(ResultRejected)
		m.ObserveHealthCheck(false, []string{"a"})
		m.ObserveCleanupFailure()
		m.SetServiceHealthy("a", false)
		m.ForgetService("a")
	})
}
