package archive_test

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/randalmurphal/beacon/pkg/beacon/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "archive.db")

	// First store instance
	store1, err := archive.NewSQLiteStore(dbPath)
	require.NoError(t, err)

	require.NoError(t, store1.Record(archive.Entry{
		EventID: "evt-1", EventName: "signup",
		Outcome: archive.OutcomeDelivered, Attempts: 1,
	}))
	require.NoError(t, store1.Close())

	// Second store instance (reopening the database)
	store2, err := archive.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	entries, err := store2.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "evt-1", entries[0].EventID)
	assert.Equal(t, "signup", entries[0].EventName)
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := archive.NewSQLiteStore("/nonexistent/path/archive.db")
	assert.Error(t, err)
}

func TestSQLiteStore_CloseIdempotent(t *testing.T) {
	store, err := archive.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_Concurrent(t *testing.T) {
	store, err := archive.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	const numGoroutines = 20
	const numOps = 10

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()

			for j := 0; j < numOps; j++ {
				switch j % 3 {
				case 0:
					_ = store.Record(archive.Entry{
						EventID: "evt", EventName: "click",
						Outcome: archive.OutcomeDelivered, Attempts: 1,
					})
				case 1:
					_, _ = store.List()
				case 2:
					_, _ = store.Count()
				}
			}
		}(i)
	}

	wg.Wait()

	count, err := store.Count()
	require.NoError(t, err)
	// numGoroutines * ceil(numOps/3) records, one per j%3==0 iteration
	assert.Equal(t, numGoroutines*4, count)
}
