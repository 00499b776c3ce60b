package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannels records what a producer pushes and probes.
type fakeChannels struct {
	mu       sync.Mutex
	pushed   []string
	probed   []string
	probeErr error
	pushErr  error
}

func (f *fakeChannels) Push(definition string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return f.pushErr
	}
	f.pushed = append(f.pushed, definition)
	return nil
}

func (f *fakeChannels) Probe(_ context.Context, definition string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed = append(f.probed, definition)
	return f.probeErr
}

func (f *fakeChannels) setProbeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeErr = err
}

func (f *fakeChannels) pushes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pushed...)
}

func (f *fakeChannels) probes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.probed...)
}

// TestStatic verifies that a static source returns its definition without a cleanup hook.
func TestStatic(t *testing.T) {
	ch := &fakeChannels{}
	res, err := NewStatic("type Query { a: String }").Fetch(context.Background(), ch)

	require.NoError(t, err)
	assert.Equal(t, "type Query { a: String }", res.Definition)
	assert.Nil(t, res.Cleanup)
	assert.Empty(t, ch.pushes())
}

// TestNewStaticFile verifies reading a static definition from disk.
func TestNewStaticFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supergraph.graphql")
	require.NoError(t, os.WriteFile(path, []byte("type Query { b: String }"), 0o600))

	src, err := NewStaticFile(path)
	require.NoError(t, err)
	res, err := src.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "type Query { b: String }", res.Definition)

	_, err = NewStaticFile(filepath.Join(t.TempDir(), "missing.graphql"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestProducerFunc verifies that the producer receives the channels and its
// result and error pass through untouched.
func TestProducerFunc(t *testing.T) {
	ch := &fakeChannels{}
	cleaned := false
	producer := ProducerFunc(func(ctx context.Context, got Channels) (Result, error) {
		assert.Same(t, ch, got)
		return Result{
			Definition: "sdl",
			Cleanup:    func(context.Context) error { cleaned = true; return nil },
		}, nil
	})

	res, err := producer.Fetch(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, "sdl", res.Definition)
	require.NoError(t, res.Cleanup(context.Background()))
	assert.True(t, cleaned)

	boom := errors.New("registry unreachable")
	_, err = ProducerFunc(func(context.Context, Channels) (Result, error) {
		return Result{}, boom
	}).Fetch(context.Background(), ch)
	assert.Same(t, boom, err)
}

// TestDeliver verifies the probe-then-push policy shared by the producers.
func TestDeliver(t *testing.T) {
	t.Run("push without health check", func(t *testing.T) {
		o := newOptions(nil)
		ch := &fakeChannels{}
		assert.True(t, o.deliver(context.Background(), ch, "test", "a"))
		assert.Equal(t, []string{"a"}, ch.pushes())
		assert.Empty(t, ch.probes())
	})

	t.Run("probe before push", func(t *testing.T) {
		o := newOptions([]Option{WithHealthCheck(true)})
		ch := &fakeChannels{}
		assert.True(t, o.deliver(context.Background(), ch, "test", "a"))
		assert.Equal(t, []string{"a"}, ch.probes())
		assert.Equal(t, []string{"a"}, ch.pushes())
	})

	t.Run("failed probe drops candidate", func(t *testing.T) {
		o := newOptions([]Option{WithHealthCheck(true)})
		ch := &fakeChannels{probeErr: errors.New("service down")}
		assert.False(t, o.deliver(context.Background(), ch, "test", "a"))
		assert.Empty(t, ch.pushes())
	})

	t.Run("rejected push", func(t *testing.T) {
		o := newOptions(nil)
		ch := &fakeChannels{pushErr: errors.New("composition failed")}
		assert.False(t, o.deliver(context.Background(), ch, "test", "a"))
	})
}
