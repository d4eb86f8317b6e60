package benchmarks

import (
	"context"
	"testing"
	"time"

	"github.com/randalmurphal/beacon/pkg/beacon"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
)

// BenchmarkNewEvent measures event creation overhead.
func BenchmarkNewEvent(b *testing.B) {
	for i := 0; i < b.N; i++ {
		event.New("page_view")
	}
}

// BenchmarkNewEvent_Properties measures creation with a typical payload.
func BenchmarkNewEvent_Properties(b *testing.B) {
	for i := 0; i < b.N; i++ {
		event.New("page_view",
			event.WithProperty("path", "/pricing"),
			event.WithProperty("user_id", "u-1001"),
			event.WithProperty("referrer", "https://example.com"),
		)
	}
}

// BenchmarkEventSet measures property writes on an open event.
func BenchmarkEventSet(b *testing.B) {
	evt := event.New("page_view")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = evt.Set("key", i)
	}
}

// BenchmarkEventGet measures property reads.
func BenchmarkEventGet(b *testing.B) {
	evt := event.New("page_view", event.WithProperty("key", "value"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = evt.Get("key")
	}
}

// BenchmarkDispatch measures the enqueue path.
func BenchmarkDispatch(b *testing.B) {
	engine, cleanup := newBenchEngine(b)
	defer cleanup()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Dispatch(event.New("page_view"))
	}
}

// BenchmarkDispatch_Parallel measures concurrent dispatchers contending
// on the pending buffer.
func BenchmarkDispatch_Parallel(b *testing.B) {
	engine, cleanup := newBenchEngine(b)
	defer cleanup()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			engine.Dispatch(event.New("page_view"))
		}
	})
}

// Helper functions

// benchInterval keeps the background flush loop from firing during a
// benchmark, so only the measured calls touch the queue.
const benchInterval = time.Hour

func newBenchEngine(b *testing.B, opts ...beacon.Option) (*beacon.Engine, func()) {
	b.Helper()

	sink := plugin.NewFunc("sink", plugin.StageDestination,
		func(ctx context.Context, evt *event.Event) error {
			return nil
		})

	opts = append([]beacon.Option{beacon.WithFlushInterval(benchInterval)}, opts...)
	engine, err := beacon.New(context.Background(), []plugin.Plugin{sink}, opts...)
	if err != nil {
		b.Fatal(err)
	}
	return engine, func() { _ = engine.Close() }
}
