package coordinator

import "errors"

var (
	// ErrNotConfigured is returned by Load before a source is configured.
	ErrNotConfigured = errors.New("supergraph source not configured")
	// ErrAlreadyConfigured is returned by Configure after the first call.
	ErrAlreadyConfigured = errors.New("supergraph source already configured")
	// ErrNotLoaded is returned by a push that arrives while no supergraph is loaded.
	ErrNotLoaded = errors.New("supergraph not loaded")
	// ErrStaleUpdate is returned by a push superseded by a newer one that committed first.
	ErrStaleUpdate = errors.New("supergraph update superseded by a newer one")
	// ErrStopped is returned once the coordinator is stopped.
	ErrStopped = errors.New("coordinator stopped")
)

// SourceError is a failure of the configured source to produce a definition.
// Its message is the cause's message, unchanged.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string { return e.Err.Error() }

func (e *SourceError) Unwrap() error { return e.Err }

// CleanupError is a failure of the cleanup hook returned by the source.
// Stop logs it and never returns it.
type CleanupError struct {
	Err error
}

func (e *CleanupError) Error() string {
	return "error occurred while calling user-provided cleanup function: " + e.Err.Error()
}

func (e *CleanupError) Unwrap() error { return e.Err }
