package coordinator

import (
	"context"
	"fmt"
	"sync"

	"github.com/t-botz/federation/internal/source"
)

// cleanupRegistry holds the teardown hook of the loaded definition and runs
// it at most once.
type cleanupRegistry struct {
	mu   sync.Mutex
	hook source.CleanupFunc
}

// set installs hook. A nil hook is ignored.
func (r *cleanupRegistry) set(hook source.CleanupFunc) {
	if hook == nil {
		return
	}
	r.mu.Lock()
	r.hook = hook
	r.mu.Unlock()
}

// run invokes the hook if one is installed and removes it. A failing or
// panicking hook is reported as a *CleanupError.
func (r *cleanupRegistry) run(ctx context.Context) error {
	r.mu.Lock()
	hook := r.hook
	r.hook = nil
	r.mu.Unlock()

	if hook == nil {
		return nil
	}
	return invoke(ctx, hook)
}

func invoke(ctx context.Context, hook source.CleanupFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &CleanupError{Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	if herr := hook(ctx); herr != nil {
		return &CleanupError{Err: herr}
	}
	return nil
}
