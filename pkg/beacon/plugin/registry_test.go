package plugin_test

import (
	"context"
	"sync"
	"testing"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, evt *event.Event) error { return nil }

func TestRegistryEmpty(t *testing.T) {
	r := plugin.NewRegistry()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.All())
	assert.Empty(t, r.Stage(plugin.StagePre))
	assert.True(t, r.AllReady())
}

func TestRegistryPartitionsByStage(t *testing.T) {
	r := plugin.NewRegistry()
	r.Add(plugin.NewFunc("scrub", plugin.StagePre, noop))
	r.Add(plugin.NewFunc("geo", plugin.StageEnrich, noop))
	r.Add(plugin.NewFunc("ua", plugin.StageEnrich, noop))
	r.Add(plugin.NewFunc("webhook", plugin.StageDestination, noop))

	assert.Equal(t, 4, r.Len())
	assert.Len(t, r.All(), 4)

	pre := r.Stage(plugin.StagePre)
	require.Len(t, pre, 1)
	assert.Equal(t, "scrub", pre[0].Name())

	enrich := r.Stage(plugin.StageEnrich)
	require.Len(t, enrich, 2)
	assert.Equal(t, "geo", enrich[0].Name())
	assert.Equal(t, "ua", enrich[1].Name())

	dest := r.Stage(plugin.StageDestination)
	require.Len(t, dest, 1)
	assert.Equal(t, "webhook", dest[0].Name())
}

func TestRegistryPreservesOrder(t *testing.T) {
	r := plugin.NewRegistry()
	names := []string{"first", "second", "third"}
	for _, name := range names {
		r.Add(plugin.NewFunc(name, plugin.StageEnrich, noop))
	}

	got := r.Stage(plugin.StageEnrich)
	require.Len(t, got, len(names))
	for i, p := range got {
		assert.Equal(t, names[i], p.Name())
	}
}

func TestRegistrySnapshotIsolation(t *testing.T) {
	r := plugin.NewRegistry()
	r.Add(plugin.NewFunc("a", plugin.StagePre, noop))

	snapshot := r.Stage(plugin.StagePre)
	r.Add(plugin.NewFunc("b", plugin.StagePre, noop))

	// The earlier snapshot is unaffected by later registration.
	assert.Len(t, snapshot, 1)
	assert.Len(t, r.Stage(plugin.StagePre), 2)
}

func TestRegistryAllReady(t *testing.T) {
	r := plugin.NewRegistry()

	loaded := plugin.NewFunc("ok", plugin.StagePre, noop)
	require.NoError(t, loaded.Load(context.Background(), config.New(nil)))
	r.Add(loaded)
	assert.True(t, r.AllReady())

	// One unloaded plugin blocks readiness.
	r.Add(plugin.NewFunc("pending", plugin.StageDestination, noop))
	assert.False(t, r.AllReady())
}

func TestRegistryConcurrentAdd(t *testing.T) {
	r := plugin.NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add(plugin.NewFunc("p", plugin.StageEnrich, noop))
			r.Stage(plugin.StageEnrich)
			r.AllReady()
		}()
	}
	wg.Wait()

	assert.Equal(t, 16, r.Len())
	assert.Len(t, r.Stage(plugin.StageEnrich), 16)
}
