package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t-botz/federation/internal/coordinator"
	"github.com/t-botz/federation/internal/healthcheck"
	"github.com/t-botz/federation/internal/source"
	"github.com/t-botz/federation/internal/supergraph"
	"github.com/t-botz/federation/internal/supergraph/supergraphtest"
	"github.com/t-botz/federation/internal/transport"
)

// subgraph is a GraphQL service that can be switched off.
type subgraph struct {
	*httptest.Server
	up    atomic.Bool
	calls atomic.Int32
}

func newSubgraph(t *testing.T) *subgraph {
	t.Helper()
	s := &subgraph{}
	s.up.Store(true)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		if !s.up.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"__typename":"Query"}}`))
	}))
	t.Cleanup(s.Close)
	return s
}

func waitForID(t *testing.T, coord *coordinator.Coordinator, want supergraph.CompositionID) {
	t.Helper()
	require.Eventually(t, func() bool {
		return coord.Snapshot().CompositionID == want
	}, 5*time.Second, 20*time.Millisecond, "composition id never became %s", want.Short())
}

// TestHotReload drives a file-backed gateway through a full lifecycle: load,
// a healthy cutover, a cutover held back by a failing service, its release
// once the service recovers, and shutdown.
func TestHotReload(t *testing.T) {
	accounts := newSubgraph(t)
	products := newSubgraph(t)
	products.up.Store(false)

	v1 := supergraphtest.Build(supergraphtest.Services("accounts", accounts.URL))
	v2 := supergraphtest.Build(supergraphtest.Services("accounts", accounts.URL), "me")
	v3 := supergraphtest.Build(supergraphtest.Services("accounts", accounts.URL, "products", products.URL), "me", "topProducts")

	path := filepath.Join(t.TempDir(), "supergraph.graphql")
	require.NoError(t, os.WriteFile(path, []byte(v1), 0o600))

	gate := healthcheck.NewGate(healthcheck.NewHTTPProber(transport.NewClient(time.Second)),
		healthcheck.WithTimeout(2*time.Second))
	watcher := source.NewFileWatcher(path,
		source.WithDebounce(20*time.Millisecond),
		source.WithHealthCheck(true))
	coord := coordinator.New(nil,
		coordinator.WithSource(watcher),
		coordinator.WithHealthChecker(gate))

	ctx := context.Background()
	require.NoError(t, coord.Load(ctx))
	assert.Equal(t, coordinator.PhaseLoaded, coord.Phase())
	assert.Equal(t, supergraph.Identify(v1), coord.Snapshot().CompositionID)

	// Healthy cutover.
	require.NoError(t, os.WriteFile(path, []byte(v2), 0o600))
	waitForID(t, coord, supergraph.Identify(v2))

	// products is down: the candidate is probed and dropped.
	require.NoError(t, os.WriteFile(path, []byte(v3), 0o600))
	require.Eventually(t, func() bool { return products.calls.Load() > 0 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, supergraph.Identify(v2), coord.Snapshot().CompositionID)

	// products recovers; rewriting the file retries the candidate.
	products.up.Store(true)
	require.NoError(t, os.WriteFile(path, []byte(v3), 0o600))
	waitForID(t, coord, supergraph.Identify(v3))
	assert.Len(t, coord.Services(), 2)

	history := coord.History()
	require.Len(t, history, 3)
	assert.Equal(t, supergraph.Identify(v1), history[0].ID)
	assert.Equal(t, supergraph.Identify(v3), history[2].ID)

	// After Stop the watcher is gone and nothing changes any more.
	require.NoError(t, coord.Stop(ctx))
	require.NoError(t, os.WriteFile(path, []byte(v1), 0o600))
	time.Sleep(100 * time.Millisecond)
	st := coord.Snapshot()
	assert.Equal(t, coordinator.PhaseStopped, st.Phase)
	assert.Len(t, coord.History(), 3)
}

// TestStaticLoadEndToEnd loads a static supergraph and checks that its
// composition id is the SHA-256 of the text.
func TestStaticLoadEndToEnd(t *testing.T) {
	accounts := newSubgraph(t)
	sdl := supergraphtest.Build(supergraphtest.Services("accounts", accounts.URL))

	coord := coordinator.New(nil, coordinator.WithSource(source.NewStatic(sdl)))
	require.NoError(t, coord.Load(context.Background()))

	st := coord.Snapshot()
	assert.Equal(t, coordinator.PhaseLoaded, st.Phase)
	assert.Equal(t, supergraph.Identify(sdl), st.CompositionID)
	assert.Len(t, string(st.CompositionID), 64)
	require.NoError(t, coord.Stop(context.Background()))
}
