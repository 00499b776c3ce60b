package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/t-botz/federation/internal/supergraph"
	"github.com/t-botz/federation/internal/transport"
)

const (
	defaultDebounce     = 100 * time.Millisecond
	defaultPollInterval = 10 * time.Second
)

// Option configures the dynamic producers in this package.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	healthCheck bool
	debounce    time.Duration
	interval    time.Duration
	client      *transport.Client
}

func newOptions(opts []Option) options {
	o := options{
		logger:   slog.New(slog.DiscardHandler),
		debounce: defaultDebounce,
		interval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = transport.NewClient(0)
	}
	return o
}

// WithLogger sets the logger producers report to.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHealthCheck makes producers probe every candidate through
// Channels.Probe and drop it when the probe fails.
func WithHealthCheck(enabled bool) Option {
	return func(o *options) { o.healthCheck = enabled }
}

// WithDebounce sets how long FileWatcher waits for writes to settle.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithInterval sets the Poller's polling interval.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithClient sets the HTTP client used by Poller.
func WithClient(c *transport.Client) Option {
	return func(o *options) { o.client = c }
}

// deliver hands a candidate to the coordinator and reports whether it was
// accepted. With health checks enabled a failing probe drops the candidate
// and the active supergraph keeps serving.
func (o *options) deliver(ctx context.Context, ch Channels, origin, definition string) bool {
	id := supergraph.Identify(definition)

	if o.healthCheck {
		if err := ch.Probe(ctx, definition); err != nil {
			o.logger.Warn("candidate supergraph failed health check; keeping the active one",
				"source", origin, "compositionId", id.Short(), "error", err)
			return false
		}
	}

	if err := ch.Push(definition); err != nil {
		o.logger.Warn("supergraph update not applied",
			"source", origin, "compositionId", id.Short(), "error", err)
		return false
	}

	o.logger.Info("supergraph update delivered", "source", origin, "compositionId", id.Short())
	return true
}
