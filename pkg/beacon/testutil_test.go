package beacon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
)

// Shared plugin helpers used across tests.

// tracker records plugin calls in order. Safe for the destination
// stage's concurrent fan-out.
type tracker struct {
	mu    sync.Mutex
	calls []string
}

func (tr *tracker) record(name string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.calls = append(tr.calls, name)
}

func (tr *tracker) names() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]string, len(tr.calls))
	copy(out, tr.calls)
	return out
}

func (tr *tracker) count() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.calls)
}

// makeTrackingPlugin creates a plugin that records each processed
// event ID into the tracker.
func makeTrackingPlugin(name string, stage plugin.Stage, tr *tracker) plugin.Plugin {
	return plugin.NewFunc(name, stage, func(ctx context.Context, evt *event.Event) error {
		tr.record(evt.ID())
		return nil
	})
}

// makeNamedPlugin creates a plugin that records its own name into the
// tracker, for asserting execution order.
func makeNamedPlugin(name string, stage plugin.Stage, tr *tracker) plugin.Plugin {
	return plugin.NewFunc(name, stage, func(ctx context.Context, evt *event.Event) error {
		tr.record(name)
		return nil
	})
}

// makeFailingPlugin creates a plugin whose Process always returns err.
func makeFailingPlugin(name string, stage plugin.Stage, err error) plugin.Plugin {
	return plugin.NewFunc(name, stage, func(ctx context.Context, evt *event.Event) error {
		return err
	})
}

// makePanicPlugin creates a plugin whose Process panics.
func makePanicPlugin(name string, stage plugin.Stage, value any) plugin.Plugin {
	return plugin.NewFunc(name, stage, func(ctx context.Context, evt *event.Event) error {
		panic(value)
	})
}

// makeUnreadyPlugin creates a plugin that never reports ready.
func makeUnreadyPlugin(name string, stage plugin.Stage) plugin.Plugin {
	return plugin.NewFunc(name, stage, nil,
		plugin.WithReady(func() bool { return false }))
}

// newTestEngine builds an engine whose timer will not fire during the
// test, so drains happen only through explicit Flush calls.
func newTestEngine(t *testing.T, plugins []plugin.Plugin, opts ...Option) *Engine {
	t.Helper()

	opts = append([]Option{WithFlushInterval(time.Hour)}, opts...)
	e, err := New(context.Background(), plugins, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// waitBarrier waits for the group with a deadline, so a missing peer
// fails the test instead of hanging it.
func waitBarrier(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
