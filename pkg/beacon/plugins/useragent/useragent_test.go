package useragent_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
	"github.com/randalmurphal/beacon/pkg/beacon/plugins/useragent"
)

const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
const safariIPhone = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
const googlebot = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"

func loadedPlugin(t *testing.T, cfg map[string]any) *useragent.Plugin {
	t.Helper()
	p := useragent.New()
	require.NoError(t, p.Load(context.Background(), config.New(cfg)))
	return p
}

func TestPlugin_Identity(t *testing.T) {
	p := useragent.New()

	assert.Equal(t, "useragent", p.Name())
	assert.Equal(t, plugin.StageEnrich, p.Stage())
	assert.False(t, p.Ready())
	require.NoError(t, p.Load(context.Background(), config.New(nil)))
	assert.True(t, p.Ready())
}

func TestProcess_DesktopBrowser(t *testing.T) {
	p := loadedPlugin(t, nil)
	evt := event.New("page_view", event.WithProperty("user_agent", chromeMac))

	require.NoError(t, p.Process(context.Background(), evt))

	browser, _ := evt.Get("browser")
	assert.Equal(t, "Chrome", browser)
	os, _ := evt.Get("os")
	assert.Equal(t, "macOS", os)
	_, hasBot := evt.Get("bot")
	assert.False(t, hasBot)
}

func TestProcess_MobileBrowser(t *testing.T) {
	p := loadedPlugin(t, nil)
	evt := event.New("page_view", event.WithProperty("user_agent", safariIPhone))

	require.NoError(t, p.Process(context.Background(), evt))

	browser, _ := evt.Get("browser")
	assert.Equal(t, "Safari", browser)
	os, _ := evt.Get("os")
	assert.Equal(t, "iOS", os)
	device, _ := evt.Get("device")
	assert.Equal(t, "iPhone", device)
}

func TestProcess_Bot(t *testing.T) {
	p := loadedPlugin(t, nil)
	evt := event.New("page_view", event.WithProperty("user_agent", googlebot))

	require.NoError(t, p.Process(context.Background(), evt))

	bot, _ := evt.Get("bot")
	assert.Equal(t, true, bot)
}

func TestProcess_CustomProperty(t *testing.T) {
	p := loadedPlugin(t, map[string]any{"property": "ua"})
	evt := event.New("page_view", event.WithProperty("ua", chromeMac))

	require.NoError(t, p.Process(context.Background(), evt))

	browser, _ := evt.Get("browser")
	assert.Equal(t, "Chrome", browser)
}

func TestProcess_MissingProperty(t *testing.T) {
	p := loadedPlugin(t, nil)
	evt := event.New("page_view")

	require.NoError(t, p.Process(context.Background(), evt))

	_, ok := evt.Get("browser")
	assert.False(t, ok)
}

func TestProcess_NonStringProperty(t *testing.T) {
	p := loadedPlugin(t, nil)
	evt := event.New("page_view", event.WithProperty("user_agent", 42))

	require.NoError(t, p.Process(context.Background(), evt))

	_, ok := evt.Get("browser")
	assert.False(t, ok)
}
