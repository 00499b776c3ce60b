// Package metrics defines the Prometheus collectors of the gateway control plane.
//
// All recording methods are safe to call on a nil *Metrics, so components can
// run without instrumentation in tests.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "federation"

// Result labels.
const (
	ResultSuccess            = "success"
	ResultFailure            = "failure"
	ResultSourceFailure      = "source_failure"
	ResultCompositionFailure = "composition_failure"
	ResultApplied            = "applied"
	ResultUnchanged          = "unchanged"
	ResultStale              = "stale"
	ResultRejected           = "rejected"
)

// Metrics contains every control plane collector.
type Metrics struct {
	Phase           *prometheus.GaugeVec
	Loads           *prometheus.CounterVec
	LoadDuration    prometheus.Histogram
	Updates         *prometheus.CounterVec
	HealthChecks    *prometheus.CounterVec
	ProbeFailures   *prometheus.CounterVec
	CleanupFailures prometheus.Counter
	ServiceHealthy  *prometheus.GaugeVec
}

// New creates unregistered collectors.
func New() *Metrics {
	return &Metrics{
		Phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "supergraph",
				Name:      "phase",
				Help:      "1 for the current lifecycle phase of the supergraph, 0 otherwise",
			},
			[]string{"phase"},
		),
		Loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "supergraph",
				Name:      "loads_total",
				Help:      "Initial supergraph loads by result",
			},
			[]string{"result"},
		),
		LoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "supergraph",
				Name:      "load_duration_seconds",
				Help:      "Time from load start until the supergraph is loaded or failed",
				Buckets:   prometheus.DefBuckets,
			},
		),
		Updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "supergraph",
				Name:      "updates_total",
				Help:      "Pushed supergraph updates by result",
			},
			[]string{"result"},
		),
		HealthChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "healthcheck",
				Name:      "checks_total",
				Help:      "Candidate supergraph health checks by result",
			},
			[]string{"result"},
		),
		ProbeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "healthcheck",
				Name:      "probe_failures_total",
				Help:      "Failed service probes by service",
			},
			[]string{"service"},
		),
		CleanupFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "supergraph",
				Name:      "cleanup_failures_total",
				Help:      "Failures of the user-provided cleanup function",
			},
		),
		ServiceHealthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "healthcheck",
				Name:      "service_healthy",
				Help:      "1 if the monitored service is healthy, 0 otherwise",
			},
			[]string{"service"},
		),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	var errs []error
	for _, c := range []prometheus.Collector{
		m.Phase, m.Loads, m.LoadDuration, m.Updates,
		m.HealthChecks, m.ProbeFailures, m.CleanupFailures, m.ServiceHealthy,
	} {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetPhase marks current as the active phase among all.
func (m *Metrics) SetPhase(current string, all []string) {
	if m == nil {
		return
	}
	for _, p := range all {
		v := 0.0
		if p == current {
			v = 1
		}
		m.Phase.WithLabelValues(p).Set(v)
	}
}

// ObserveLoad records the outcome and duration of an initial load.
func (m *Metrics) ObserveLoad(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(result).Inc()
	m.LoadDuration.Observe(d.Seconds())
}

// ObserveUpdate records the outcome of a pushed update.
func (m *Metrics) ObserveUpdate(result string) {
	if m == nil {
		return
	}
	m.Updates.WithLabelValues(result).Inc()
}

// ObserveHealthCheck records a gate outcome and the services that failed.
func (m *Metrics) ObserveHealthCheck(passed bool, failedServices []string) {
	if m == nil {
		return
	}
	if passed {
		m.HealthChecks.WithLabelValues(ResultSuccess).Inc()
		return
	}
	m.HealthChecks.WithLabelValues(ResultFailure).Inc()
	for _, svc := range failedServices {
		m.ProbeFailures.WithLabelValues(svc).Inc()
	}
}

// ObserveCleanupFailure counts a failed cleanup hook.
func (m *Metrics) ObserveCleanupFailure() {
	if m == nil {
		return
	}
	m.CleanupFailures.Inc()
}

// SetServiceHealthy records the monitored health of a service.
func (m *Metrics) SetServiceHealthy(service string, healthy bool) {
	if m == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1
	}
	m.ServiceHealthy.WithLabelValues(service).Set(v)
}

// ForgetService drops the health series of a service that left the supergraph.
func (m *Metrics) ForgetService(service string) {
	if m == nil {
		return
	}
	m.ServiceHealthy.DeleteLabelValues(service)
}
