package source

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher serves a supergraph from a file and pushes a new definition
// whenever the file changes.
//
// The parent directory is watched rather than the file itself so editors and
// deploy tools that replace the file through a rename keep triggering
// updates. Bursts of events are collapsed with a debounce window.
type FileWatcher struct {
	path string
	opts options
}

// NewFileWatcher creates a producer for the supergraph stored at path.
func NewFileWatcher(path string, opts ...Option) *FileWatcher {
	return &FileWatcher{
		path: filepath.Clean(path),
		opts: newOptions(opts),
	}
}

// Fetch reads the file and starts watching it. The returned cleanup stops
// the watcher.
func (w *FileWatcher) Fetch(ctx context.Context, ch Channels) (Result, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return Result{}, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return Result{}, err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return Result{}, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.watch(runCtx, watcher, ch, string(data))
	}()

	w.opts.logger.Info("watching supergraph file", "path", w.path)

	var once sync.Once
	cleanup := func(ctx context.Context) error {
		var err error
		once.Do(func() {
			cancel()
			err = watcher.Close()
			select {
			case <-done:
			case <-ctx.Done():
				err = ctx.Err()
			}
		})
		return err
	}

	return Result{Definition: string(data), Cleanup: cleanup}, nil
}

func (w *FileWatcher) watch(ctx context.Context, watcher *fsnotify.Watcher, ch Channels, last string) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					w.opts.logger.Warn("supergraph file removed; keeping the active definition", "path", w.path)
				}
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.debounce)
			} else {
				timer.Reset(w.opts.debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.opts.logger.Warn("supergraph file watcher error", "path", w.path, "error", err)

		case <-fire:
			fire = nil
			data, err := os.ReadFile(w.path)
			if err != nil {
				w.opts.logger.Warn("failed to read supergraph file", "path", w.path, "error", err)
				continue
			}
			text := string(data)
			if text == last {
				continue
			}
			if w.opts.deliver(ctx, ch, "file", text) {
				last = text
			}
		}
	}
}
