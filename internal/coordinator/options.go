package coordinator

import (
	"github.com/t-botz/federation/internal/metrics"
	"github.com/t-botz/federation/internal/source"
	"github.com/t-botz/federation/internal/storage"
	"github.com/t-botz/federation/internal/supergraph"
)

// DefaultHistoryLimit is the number of committed definitions kept by the
// default history store.
const DefaultHistoryLimit = 20

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSource configures src at construction, moving the coordinator
// straight to the initialized phase.
func WithSource(src source.Source) Option {
	return func(c *Coordinator) { c.src = src }
}

// WithComposer replaces the default gqlparser-based composer.
func WithComposer(composer supergraph.Composer) Option {
	return func(c *Coordinator) {
		if composer != nil {
			c.composer = composer
		}
	}
}

// WithHealthChecker sets the gate behind the producer's Probe channel.
func WithHealthChecker(gate HealthChecker) Option {
	return func(c *Coordinator) {
		if gate != nil {
			c.gate = gate
		}
	}
}

// WithHistory sets the store recording every committed definition.
func WithHistory(history storage.Store) Option {
	return func(c *Coordinator) {
		if history != nil {
			c.history = history
		}
	}
}

// WithMetrics records lifecycle metrics in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}
