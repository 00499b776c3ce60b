package source

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/t-botz/federation/internal/supergraph"
)

// ErrEmptySupergraph is returned when a registry answers without a definition.
var ErrEmptySupergraph = errors.New("registry returned an empty supergraph")

// Artifact is the registry response polled by Poller.
type Artifact struct {
	ID            string `json:"id"`
	SupergraphSDL string `json:"supergraphSdl"`
}

func (a Artifact) key() string {
	if a.ID != "" {
		return a.ID
	}
	return string(supergraph.Identify(a.SupergraphSDL))
}

// Poller fetches the supergraph from an HTTP registry and polls it for
// changes. A candidate that fails its health check or is rejected is tried
// again on the next poll.
type Poller struct {
	url  string
	opts options
}

// NewPoller creates a producer for the registry endpoint at url.
func NewPoller(url string, opts ...Option) *Poller {
	return &Poller{url: url, opts: newOptions(opts)}
}

// Fetch retrieves the current artifact and starts polling.
func (p *Poller) Fetch(ctx context.Context, ch Channels) (Result, error) {
	art, err := p.fetch(ctx)
	if err != nil {
		return Result{}, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.poll(runCtx, ch, art.key())
	}()

	p.opts.logger.Info("polling supergraph registry", "url", p.url, "interval", p.opts.interval)

	var once sync.Once
	cleanup := func(context.Context) error {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
		return nil
	}
	return Result{Definition: art.SupergraphSDL, Cleanup: cleanup}, nil
}

func (p *Poller) poll(ctx context.Context, ch Channels, lastKey string) {
	ticker := time.NewTicker(p.opts.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		art, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.opts.logger.Warn("failed to poll supergraph registry", "url", p.url, "error", err)
			}
			continue
		}
		if art.key() == lastKey {
			continue
		}
		if p.opts.deliver(ctx, ch, "poll", art.SupergraphSDL) {
			lastKey = art.key()
		}
	}
}

func (p *Poller) fetch(ctx context.Context) (Artifact, error) {
	header := http.Header{}
	header.Set("X-Request-Id", uuid.NewString())

	var art Artifact
	if err := p.opts.client.GetJSON(ctx, p.url, header, &art); err != nil {
		return Artifact{}, err
	}
	if art.SupergraphSDL == "" {
		return Artifact{}, ErrEmptySupergraph
	}
	return art, nil
}
