package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/exp/slices"

	"github.com/t-botz/federation/internal/healthcheck"
	"github.com/t-botz/federation/internal/metrics"
	"github.com/t-botz/federation/internal/source"
	"github.com/t-botz/federation/internal/storage"
	"github.com/t-botz/federation/internal/supergraph"
)

var tracer = otel.Tracer("federation.coordinator")

// Logger is the logging capability the coordinator needs.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// HealthChecker vets a candidate definition against its backend services.
type HealthChecker interface {
	Check(ctx context.Context, candidate string) error
}

// State is a read-only snapshot of the coordinator.
type State struct {
	Phase         Phase                    `json:"phase"`
	CompositionID supergraph.CompositionID `json:"compositionId,omitempty"`
	Services      []supergraph.Service     `json:"services,omitempty"`
	Sequence      uint64                   `json:"sequence"`
	LoadedAt      time.Time                `json:"loadedAt"`
	UpdatedAt     time.Time                `json:"updatedAt"`
	Error         string                   `json:"error,omitempty"`
}

// activeSupergraph is the payload of the loaded phase.
type activeSupergraph struct {
	schema    *supergraph.Schema
	sequence  uint64
	loadedAt  time.Time
	updatedAt time.Time
}

// Coordinator owns the lifecycle of the supergraph served by the gateway.
// All methods are safe for concurrent use.
type Coordinator struct {
	logger   Logger
	composer supergraph.Composer
	gate     HealthChecker
	history  storage.Store
	metrics  *metrics.Metrics
	cleanup  cleanupRegistry

	mu         sync.RWMutex
	phase      Phase
	src        source.Source
	active     *activeSupergraph // non-nil iff phase is PhaseLoaded
	loadDone   chan struct{}     // closed once Load has settled
	loadErr    error
	nextSeq    uint64 // last sequence handed out
	appliedSeq uint64 // sequence of the last committed or acknowledged push
}

// New creates a coordinator. It starts uninitialized unless WithSource is
// given. A nil logger discards everything.
func New(logger Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Coordinator{
		logger:   logger,
		composer: supergraph.NewGQLComposer(),
		history:  storage.NewMemoryStore(DefaultHistoryLimit),
		phase:    PhaseUninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.gate == nil {
		c.gate = healthcheck.NewGate(healthcheck.NewHTTPProber(nil), healthcheck.WithMetrics(c.metrics))
	}
	if c.src != nil {
		c.transition(PhaseInitialized)
	} else {
		c.metrics.SetPhase(c.phase.String(), phaseLabels())
	}
	return c
}

// Configure sets the source Load will fetch from.
func (c *Coordinator) Configure(src source.Source) error {
	if src == nil {
		return errors.New("nil supergraph source")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseUninitialized:
		c.src = src
		c.transition(PhaseInitialized)
		return nil
	case PhaseStopped:
		return ErrStopped
	default:
		return ErrAlreadyConfigured
	}
}

// Load fetches the initial definition, composes it and starts serving it.
//
// Load is single-shot: the source is fetched at most once, and every call,
// concurrent or later, returns the outcome of that one attempt. A failed load
// is logged at error level and leaves the coordinator in PhaseFailedToLoad.
func (c *Coordinator) Load(ctx context.Context) error {
	c.mu.Lock()
	if done := c.loadDone; done != nil {
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.loadErr
	}
	switch c.phase {
	case PhaseUninitialized:
		c.mu.Unlock()
		return ErrNotConfigured
	case PhaseStopped:
		c.mu.Unlock()
		return ErrStopped
	}
	done := make(chan struct{})
	c.loadDone = done
	src := c.src
	c.mu.Unlock()

	err := c.load(ctx, src)

	c.mu.Lock()
	c.loadErr = err
	close(done)
	c.mu.Unlock()
	return err
}

func (c *Coordinator) load(ctx context.Context, src source.Source) error {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "coordinator.Load")
	defer span.End()

	res, err := src.Fetch(ctx, channels{c: c})
	if err != nil {
		return c.failLoad(span, start, &SourceError{Err: err}, metrics.ResultSourceFailure)
	}

	id := supergraph.Identify(res.Definition)
	span.SetAttributes(attribute.String("supergraph.composition_id", id.String()))

	schema, cerr := c.composer.Compose(res.Definition)

	c.mu.Lock()
	if c.phase == PhaseStopped {
		c.mu.Unlock()
		c.logger.Warn("discarding supergraph fetched after stop", "compositionId", id.Short())
		c.runCleanup(ctx, &cleanupRegistry{hook: res.Cleanup})
		span.SetStatus(codes.Error, ErrStopped.Error())
		return ErrStopped
	}
	// The hook belongs to the fetched definition whether or not it composes.
	c.cleanup.set(res.Cleanup)
	if cerr != nil {
		c.mu.Unlock()
		return c.failLoad(span, start, cerr, metrics.ResultCompositionFailure)
	}

	now := time.Now()
	c.nextSeq++
	c.appliedSeq = c.nextSeq
	c.active = &activeSupergraph{
		schema:    schema,
		sequence:  c.appliedSeq,
		loadedAt:  now,
		updatedAt: now,
	}
	c.transition(PhaseLoaded)
	c.record(schema, c.appliedSeq, now)
	c.mu.Unlock()

	c.metrics.ObserveLoad(metrics.ResultSuccess, time.Since(start))
	c.logger.Info("supergraph loaded",
		"compositionId", id.Short(),
		"services", len(schema.Services),
		"duration", time.Since(start))
	return nil
}

// failLoad records err as the outcome of the initial load.
func (c *Coordinator) failLoad(span trace.Span, start time.Time, err error, result string) error {
	c.mu.Lock()
	if c.phase == PhaseStopped {
		c.mu.Unlock()
		span.SetStatus(codes.Error, ErrStopped.Error())
		return ErrStopped
	}
	c.transition(PhaseFailedToLoad)
	c.loadErr = err
	c.mu.Unlock()

	c.metrics.ObserveLoad(result, time.Since(start))
	span.RecordError(err)
	span.SetStatus(codes.Error, "load failed")
	c.logger.Error(err.Error())
	return err
}

// push applies an update handed over by the source's producer.
//
// Every push takes a sequence number when it arrives. Composition runs
// outside the lock, so pushes may compose concurrently, but only a push newer
// than the last applied one commits. A push identical to the active
// definition commits nothing and still supersedes older pushes in flight.
func (c *Coordinator) push(definition string) error {
	id := supergraph.Identify(definition)
	_, span := tracer.Start(context.Background(), "coordinator.Update",
		trace.WithAttributes(attribute.String("supergraph.composition_id", id.String())))
	defer span.End()

	c.mu.Lock()
	if c.phase != PhaseLoaded {
		err := c.notServingErr()
		c.mu.Unlock()
		c.metrics.ObserveUpdate(metrics.ResultRejected)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	c.nextSeq++
	seq := c.nextSeq
	if c.active.schema.ID == id {
		c.appliedSeq = seq
		c.mu.Unlock()
		c.metrics.ObserveUpdate(metrics.ResultUnchanged)
		c.logger.Debug("supergraph update unchanged", "compositionId", id.Short(), "sequence", seq)
		return nil
	}
	c.mu.Unlock()

	schema, err := c.composer.Compose(definition)
	if err != nil {
		c.metrics.ObserveUpdate(metrics.ResultRejected)
		span.RecordError(err)
		span.SetStatus(codes.Error, "composition failed")
		c.logger.Warn("supergraph update rejected; keeping the active supergraph",
			"compositionId", id.Short(), "sequence", seq, "error", err)
		return err
	}

	c.mu.Lock()
	if c.phase != PhaseLoaded {
		err := c.notServingErr()
		c.mu.Unlock()
		c.metrics.ObserveUpdate(metrics.ResultRejected)
		return err
	}
	if seq <= c.appliedSeq {
		applied := c.appliedSeq
		c.mu.Unlock()
		c.metrics.ObserveUpdate(metrics.ResultStale)
		c.logger.Info("supergraph update superseded",
			"compositionId", id.Short(), "sequence", seq, "applied", applied)
		return ErrStaleUpdate
	}
	now := time.Now()
	previous := c.active.schema.ID
	c.active = &activeSupergraph{
		schema:    schema,
		sequence:  seq,
		loadedAt:  c.active.loadedAt,
		updatedAt: now,
	}
	c.appliedSeq = seq
	c.transition(PhaseLoaded)
	c.record(schema, seq, now)
	c.mu.Unlock()

	c.metrics.ObserveUpdate(metrics.ResultApplied)
	c.logger.Info("supergraph updated",
		"compositionId", id.Short(),
		"previous", previous.Short(),
		"sequence", seq,
		"services", len(schema.Services))
	return nil
}

func (c *Coordinator) notServingErr() error {
	if c.phase == PhaseStopped {
		return ErrStopped
	}
	return ErrNotLoaded
}

// Check runs the health check gate on candidate. It never changes state.
func (c *Coordinator) Check(ctx context.Context, candidate string) error {
	ctx, span := tracer.Start(ctx, "coordinator.Check")
	defer span.End()

	if err := c.gate.Check(ctx, candidate); err != nil {
		span.SetStatus(codes.Error, "health check failed")
		c.logger.Debug("candidate supergraph failed its health check",
			"compositionId", supergraph.Identify(candidate).Short(), "error", err)
		return err
	}
	return nil
}

// Stop moves the coordinator to PhaseStopped and runs the cleanup hook of
// the loaded definition once. It is idempotent and never fails: a failing
// hook is logged at error level.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseStopped {
		c.mu.Unlock()
		return nil
	}
	c.transition(PhaseStopped)
	c.active = nil
	c.mu.Unlock()

	c.runCleanup(ctx, &c.cleanup)
	c.logger.Info("supergraph coordinator stopped")
	return nil
}

func (c *Coordinator) runCleanup(ctx context.Context, reg *cleanupRegistry) {
	if err := reg.run(ctx); err != nil {
		c.metrics.ObserveCleanupFailure()
		c.logger.Error(err.Error())
	}
}

// transition moves to next. Callers hold c.mu (or own c exclusively).
func (c *Coordinator) transition(next Phase) {
	if !c.phase.CanTransition(next) {
		panic("coordinator: illegal transition from " + c.phase.String() + " to " + next.String())
	}
	c.phase = next
	c.metrics.SetPhase(next.String(), phaseLabels())
}

// record adds a committed schema to the history. Callers hold c.mu.
func (c *Coordinator) record(schema *supergraph.Schema, seq uint64, at time.Time) {
	err := c.history.Put(storage.Record{
		ID:          schema.ID,
		Definition:  schema.Definition,
		Sequence:    seq,
		CommittedAt: at,
	})
	if err != nil {
		c.logger.Warn("failed to record supergraph history", "compositionId", schema.ID.Short(), "error", err)
	}
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := State{Phase: c.phase, Sequence: c.appliedSeq}
	if c.active != nil {
		st.CompositionID = c.active.schema.ID
		st.Services = slices.Clone(c.active.schema.Services)
		st.Sequence = c.active.sequence
		st.LoadedAt = c.active.loadedAt
		st.UpdatedAt = c.active.updatedAt
	}
	if c.phase == PhaseFailedToLoad && c.loadErr != nil {
		st.Error = c.loadErr.Error()
	}
	return st
}

// Phase returns the current phase.
func (c *Coordinator) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Schema returns the active schema, if any.
func (c *Coordinator) Schema() (*supergraph.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active == nil {
		return nil, false
	}
	return c.active.schema, true
}

// Services returns the services of the active schema, or nil when nothing
// is loaded.
func (c *Coordinator) Services() []supergraph.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active == nil {
		return nil
	}
	return slices.Clone(c.active.schema.Services)
}

// History lists the committed definitions still retained, oldest first.
func (c *Coordinator) History() []storage.Record {
	return c.history.List()
}

// Definition returns the text of a committed definition.
func (c *Coordinator) Definition(id supergraph.CompositionID) (string, error) {
	rec, err := c.history.Get(id)
	if err != nil {
		return "", err
	}
	return rec.Definition, nil
}

// channels is what the source's producer holds on to.
type channels struct {
	c *Coordinator
}

func (ch channels) Push(definition string) error {
	return ch.c.push(definition)
}

func (ch channels) Probe(ctx context.Context, definition string) error {
	return ch.c.Check(ctx, definition)
}
