package source

import (
	"context"
	"os"
)

// Channels is handed to a Source on every Fetch. A dynamic source may keep it
// and use it at any later time.
type Channels interface {
	// Push replaces the active supergraph with definition. It returns once the
	// coordinator has committed or rejected the definition.
	Push(definition string) error

	// Probe runs the health check gate against definition without changing
	// any coordinator state.
	Probe(ctx context.Context, definition string) error
}

// CleanupFunc releases whatever a source acquired to produce its definition.
// The coordinator calls it at most once, from Stop.
type CleanupFunc func(ctx context.Context) error

// Result is the outcome of a successful Fetch.
type Result struct {
	Definition string
	Cleanup    CleanupFunc
}

// Source produces the initial supergraph definition.
type Source interface {
	// Fetch may block for as long as the definition takes to obtain. Errors
	// are returned as produced; the coordinator surfaces them unchanged.
	Fetch(ctx context.Context, ch Channels) (Result, error)
}

// Static serves a definition known at configuration time.
type Static struct {
	definition string
}

// NewStatic returns a Source that always yields definition.
func NewStatic(definition string) *Static {
	return &Static{definition: definition}
}

// NewStaticFile reads path once and serves its contents.
func NewStaticFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewStatic(string(data)), nil
}

// Fetch returns the configured definition. The channels are not retained.
func (s *Static) Fetch(context.Context, Channels) (Result, error) {
	return Result{Definition: s.definition}, nil
}

// ProducerFunc is a user-supplied dynamic source.
type ProducerFunc func(ctx context.Context, ch Channels) (Result, error)

// Fetch calls f(ctx, ch).
func (f ProducerFunc) Fetch(ctx context.Context, ch Channels) (Result, error) {
	return f(ctx, ch)
}
