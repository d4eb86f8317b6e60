package benchmarks

import (
	"context"
	"testing"

	"github.com/randalmurphal/beacon/pkg/beacon"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
)

// BenchmarkFlush_10 drains a 10-event queue.
func BenchmarkFlush_10(b *testing.B) {
	benchmarkFlush(b, 10)
}

// BenchmarkFlush_100 drains a 100-event queue.
func BenchmarkFlush_100(b *testing.B) {
	benchmarkFlush(b, 100)
}

// BenchmarkFlush_1000 drains a 1000-event queue.
func BenchmarkFlush_1000(b *testing.B) {
	benchmarkFlush(b, 1000)
}

func benchmarkFlush(b *testing.B, n int) {
	engine, cleanup := newBenchEngine(b)
	defer cleanup()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		fillQueue(engine, n)
		b.StartTimer()
		if _, err := engine.Flush(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFlush_FullPipeline drains through all three stages: one pre
// transform, one enrichment, and two concurrent destinations.
func BenchmarkFlush_FullPipeline(b *testing.B) {
	noop := func(ctx context.Context, evt *event.Event) error { return nil }
	stamp := func(ctx context.Context, evt *event.Event) error {
		return evt.Set("stage", "pre")
	}
	enrich := func(ctx context.Context, evt *event.Event) error {
		return evt.Set("enriched", true)
	}

	plugins := []plugin.Plugin{
		plugin.NewFunc("stamp", plugin.StagePre, stamp),
		plugin.NewFunc("enrich", plugin.StageEnrich, enrich),
		plugin.NewFunc("dest-a", plugin.StageDestination, noop),
		plugin.NewFunc("dest-b", plugin.StageDestination, noop),
	}
	engine, cleanup := newPipelineEngine(b, plugins)
	defer cleanup()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		fillQueue(engine, 100)
		b.StartTimer()
		if _, err := engine.Flush(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFlush_FanOut_4 drains with four concurrent destinations.
func BenchmarkFlush_FanOut_4(b *testing.B) {
	noop := func(ctx context.Context, evt *event.Event) error { return nil }
	plugins := []plugin.Plugin{
		plugin.NewFunc("dest-a", plugin.StageDestination, noop),
		plugin.NewFunc("dest-b", plugin.StageDestination, noop),
		plugin.NewFunc("dest-c", plugin.StageDestination, noop),
		plugin.NewFunc("dest-d", plugin.StageDestination, noop),
	}
	engine, cleanup := newPipelineEngine(b, plugins)
	defer cleanup()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		fillQueue(engine, 100)
		b.StartTimer()
		if _, err := engine.Flush(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFlush_Empty measures the no-work fast path.
func BenchmarkFlush_Empty(b *testing.B) {
	engine, cleanup := newBenchEngine(b)
	defer cleanup()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Flush(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

// Helper functions

func fillQueue(engine *beacon.Engine, n int) {
	for i := 0; i < n; i++ {
		engine.Dispatch(event.New("page_view", event.WithProperty("seq", i)))
	}
}

func newPipelineEngine(b *testing.B, plugins []plugin.Plugin) (*beacon.Engine, func()) {
	b.Helper()

	engine, err := beacon.New(context.Background(), plugins,
		beacon.WithFlushInterval(benchInterval))
	if err != nil {
		b.Fatal(err)
	}
	return engine, func() { _ = engine.Close() }
}
