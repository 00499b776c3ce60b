package source

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go/jetstream"
)

// KeyValue is the subset of jetstream.KeyValue used by KVWatcher.
type KeyValue interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Watch(ctx context.Context, keys string, opts ...jetstream.WatchOpt) (jetstream.KeyWatcher, error)
}

// KVWatcher serves the supergraph stored under one key of a NATS JetStream
// key-value bucket and pushes every new revision of that key.
//
// Deletes and purges of the key are ignored: the gateway keeps serving the
// last definition rather than going dark.
type KVWatcher struct {
	kv   KeyValue
	key  string
	opts options
}

// NewKVWatcher creates a producer for key in kv.
func NewKVWatcher(kv KeyValue, key string, opts ...Option) *KVWatcher {
	return &KVWatcher{kv: kv, key: key, opts: newOptions(opts)}
}

// Fetch reads the current revision and starts watching for new ones.
//
// The watch is opened before the read so a put landing in between is still
// delivered; entries at or below the revision read are dropped.
func (w *KVWatcher) Fetch(ctx context.Context, ch Channels) (Result, error) {
	runCtx, cancel := context.WithCancel(context.Background())
	watcher, err := w.kv.Watch(runCtx, w.key)
	if err != nil {
		cancel()
		return Result{}, err
	}

	entry, err := w.kv.Get(ctx, w.key)
	if err != nil {
		cancel()
		_ = watcher.Stop()
		return Result{}, err
	}
	initial := string(entry.Value())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.watch(runCtx, watcher, ch, initial, entry.Revision())
	}()

	w.opts.logger.Info("watching supergraph key", "key", w.key, "revision", entry.Revision())

	var once sync.Once
	cleanup := func(context.Context) error {
		var err error
		once.Do(func() {
			cancel()
			err = watcher.Stop()
			wg.Wait()
		})
		return err
	}
	return Result{Definition: initial, Cleanup: cleanup}, nil
}

func (w *KVWatcher) watch(ctx context.Context, watcher jetstream.KeyWatcher, ch Channels, last string, seen uint64) {
	for {
		select {
		case <-ctx.Done():
			return

		case entry, ok := <-watcher.Updates():
			if !ok {
				return
			}
			// nil marks the end of the initial values
			if entry == nil {
				continue
			}
			if entry.Revision() <= seen {
				continue
			}
			seen = entry.Revision()
			if entry.Operation() != jetstream.KeyValuePut {
				w.opts.logger.Warn("supergraph key removed; keeping the active definition",
					"key", entry.Key(), "operation", entry.Operation())
				continue
			}
			text := string(entry.Value())
			if text == last {
				continue
			}
			if w.opts.deliver(ctx, ch, "nats", text) {
				last = text
			}
		}
	}
}
