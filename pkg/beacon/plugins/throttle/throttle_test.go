package throttle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
	"github.com/randalmurphal/beacon/pkg/beacon/plugins/throttle"
)

func TestPlugin_Identity(t *testing.T) {
	p := throttle.New()

	assert.Equal(t, "throttle", p.Name())
	assert.Equal(t, plugin.StagePre, p.Stage())
	assert.False(t, p.Ready())
}

func TestLoad_Defaults(t *testing.T) {
	p := throttle.New()

	require.NoError(t, p.Load(context.Background(), config.New(nil)))
	assert.True(t, p.Ready())
}

func TestLoad_InvalidRate(t *testing.T) {
	p := throttle.New()

	err := p.Load(context.Background(), config.New(map[string]any{
		"events_per_second": -1,
	}))

	assert.ErrorContains(t, err, "events_per_second")
	assert.False(t, p.Ready())
}

func TestLoad_InvalidBurst(t *testing.T) {
	p := throttle.New()

	err := p.Load(context.Background(), config.New(map[string]any{
		"burst": 0,
	}))

	assert.ErrorContains(t, err, "burst")
}

func TestLoad_UnknownMode(t *testing.T) {
	p := throttle.New()

	err := p.Load(context.Background(), config.New(map[string]any{
		"mode": "reject",
	}))

	assert.ErrorContains(t, err, `unknown mode "reject"`)
}

func TestProcess_DeferMode(t *testing.T) {
	p := throttle.New()
	require.NoError(t, p.Load(context.Background(), config.New(map[string]any{
		"events_per_second": 1,
		"burst":             2,
	})))

	// burst allows the first two, the third is over limit
	assert.NoError(t, p.Process(context.Background(), event.New("a")))
	assert.NoError(t, p.Process(context.Background(), event.New("b")))

	err := p.Process(context.Background(), event.New("c"))
	assert.ErrorIs(t, err, throttle.ErrThrottled)
	assert.NotErrorIs(t, err, plugin.ErrDrop)
}

func TestProcess_DropMode(t *testing.T) {
	p := throttle.New()
	require.NoError(t, p.Load(context.Background(), config.New(map[string]any{
		"events_per_second": 1,
		"burst":             1,
		"mode":              "drop",
	})))

	assert.NoError(t, p.Process(context.Background(), event.New("a")))

	err := p.Process(context.Background(), event.New("b"))
	assert.ErrorIs(t, err, plugin.ErrDrop)
}

func TestProcess_RefillsOverTime(t *testing.T) {
	p := throttle.New()
	require.NoError(t, p.Load(context.Background(), config.New(map[string]any{
		"events_per_second": 50,
		"burst":             1,
	})))

	assert.NoError(t, p.Process(context.Background(), event.New("a")))
	assert.Error(t, p.Process(context.Background(), event.New("b")))

	time.Sleep(40 * time.Millisecond) // one token at 50/s takes 20ms

	assert.NoError(t, p.Process(context.Background(), event.New("c")))
}
