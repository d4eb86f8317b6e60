package benchmarks

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/randalmurphal/beacon/pkg/beacon"
	"github.com/randalmurphal/beacon/pkg/beacon/archive"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
)

// BenchmarkMemoryStore_Record measures in-memory archive writes.
func BenchmarkMemoryStore_Record(b *testing.B) {
	store := archive.NewMemoryStore()
	entry := createLargeEntry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Record(entry)
	}
}

// BenchmarkMemoryStore_List measures listing a 1000-entry archive.
func BenchmarkMemoryStore_List(b *testing.B) {
	store := archive.NewMemoryStore()
	entry := createLargeEntry()
	for i := 0; i < 1000; i++ {
		_ = store.Record(entry)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.List()
	}
}

// BenchmarkSQLiteStore_Record measures SQLite archive writes.
func BenchmarkSQLiteStore_Record(b *testing.B) {
	store, cleanup := createSQLiteStore(b)
	defer cleanup()
	entry := createLargeEntry()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = store.Record(entry)
	}
}

// BenchmarkSQLiteStore_List measures listing a 1000-entry SQLite archive.
func BenchmarkSQLiteStore_List(b *testing.B) {
	store, cleanup := createSQLiteStore(b)
	defer cleanup()
	entry := createLargeEntry()
	for i := 0; i < 1000; i++ {
		_ = store.Record(entry)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.List()
	}
}

// BenchmarkFlush_WithArchive measures drain cost with outcome recording.
func BenchmarkFlush_WithArchive(b *testing.B) {
	store := archive.NewMemoryStore()
	engine, cleanup := newBenchEngine(b, beacon.WithArchive(store))
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

// BenchmarkFlush_WithoutArchive baseline without outcome recording.
func BenchmarkFlush_WithoutArchive(b *testing.B) {
	engine, cleanup := newBenchEngine(b)
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

// BenchmarkEventMarshal measures event serialization overhead.
func BenchmarkEventMarshal(b *testing.B) {
	evt := createLargeEvent()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(evt)
	}
}

// Helper functions

func createLargeEvent() *event.Event {
	return event.New("order.created",
		event.WithProperty("order_id", "o-2931"),
		event.WithProperty("user_id", "u-1001"),
		event.WithProperty("items", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}),
		event.WithProperty("metadata", map[string]string{
			"channel":  "web",
			"campaign": "spring",
			"locale":   "en-US",
		}),
	)
}

func createLargeEntry() archive.Entry {
	evt := createLargeEvent()
	payload, _ := json.Marshal(evt)
	return archive.Entry{
		EventID:   evt.ID(),
		EventName: evt.Name(),
		Payload:   payload,
		Outcome:   archive.OutcomeDelivered,
		Attempts:  1,
	}
}

func createSQLiteStore(b *testing.B) (*archive.SQLiteStore, func()) {
	b.Helper()
	tmpFile, err := os.CreateTemp("", "bench-*.db")
	if err != nil {
		b.Fatal(err)
	}
	tmpFile.Close()

	store, err := archive.NewSQLiteStore(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		b.Fatal(err)
	}

	return store, func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}
}
