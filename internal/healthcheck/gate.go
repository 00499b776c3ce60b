package healthcheck

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/t-botz/federation/internal/metrics"
	"github.com/t-botz/federation/internal/supergraph"
)

var tracer = otel.Tracer("federation.healthcheck")

// DefaultTimeout bounds one Check when the caller's context has no deadline.
const DefaultTimeout = 10 * time.Second

// Failure is one service that failed its probe.
type Failure struct {
	Service supergraph.Service
	Err     error
}

// Error is returned by Gate.Check when the candidate cannot be cut over to.
// It lists every failing service, sorted by name.
type Error struct {
	// Cause is set when the candidate could not be read at all.
	Cause    error
	Failures []Failure
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("the gateway did not update its schema due to failed service health checks")
	if e.Cause != nil {
		fmt.Fprintf(&b, ": error during the health check: %v", e.Cause)
		return b.String()
	}
	for i, f := range e.Failures {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "error during the health check of service %q (%s): %v", f.Service.Name, f.Service.URL, f.Err)
	}
	return b.String()
}

// Unwrap returns the cause and every probe error.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, len(e.Failures)+1)
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	for _, f := range e.Failures {
		out = append(out, f.Err)
	}
	return out
}

// FailedServices returns the names of the failing services.
func (e *Error) FailedServices() []string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Service.Name)
	}
	return names
}

// Gate decides whether a candidate supergraph's services are all reachable.
// It has no state of its own and is safe for concurrent use.
type Gate struct {
	prober  Prober
	timeout time.Duration
	metrics *metrics.Metrics
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithTimeout bounds each Check.
func WithTimeout(d time.Duration) GateOption {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMetrics records check outcomes in m.
func WithMetrics(m *metrics.Metrics) GateOption {
	return func(g *Gate) { g.metrics = m }
}

// NewGate returns a Gate probing services with prober.
func NewGate(prober Prober, opts ...GateOption) *Gate {
	g := &Gate{prober: prober, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check probes, in parallel, every distinct service referenced by candidate.
// It returns nil when all probes succeed and an *Error naming every failing
// service otherwise. No retries are made.
func (g *Gate) Check(ctx context.Context, candidate string) error {
	ctx, span := tracer.Start(ctx, "healthcheck.Gate.Check",
		trace.WithAttributes(attribute.String("supergraph.composition_id", supergraph.Identify(candidate).String())))
	defer span.End()

	services, err := supergraph.ParseServices(candidate)
	if err != nil {
		checkErr := &Error{Cause: err}
		g.metrics.ObserveHealthCheck(false, nil)
		span.RecordError(checkErr)
		span.SetStatus(codes.Error, "unreadable candidate")
		return checkErr
	}
	span.SetAttributes(attribute.Int("healthcheck.services", len(services)))

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var (
		mu       sync.Mutex
		failures []Failure
		eg       errgroup.Group
	)
	for _, svc := range services {
		eg.Go(func() error {
			if err := g.prober.Probe(ctx, svc); err != nil {
				mu.Lock()
				failures = append(failures, Failure{Service: svc, Err: err})
				mu.Unlock()
			}
			// failures are collected above; the group only waits
			return nil
		})
	}
	_ = eg.Wait()

	if len(failures) == 0 {
		g.metrics.ObserveHealthCheck(true, nil)
		return nil
	}

	slices.SortFunc(failures, func(a, b Failure) int {
		return strings.Compare(a.Service.Name, b.Service.Name)
	})
	checkErr := &Error{Failures: failures}
	g.metrics.ObserveHealthCheck(false, checkErr.FailedServices())
	span.RecordError(checkErr)
	span.SetStatus(codes.Error, "service health check failed")
	return checkErr
}
