// Package useragent provides an enrich-stage plugin that parses a
// user-agent property into browser, OS, and device properties.
package useragent

import (
	"context"
	"sync/atomic"

	ua "github.com/mileusna/useragent"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
)

// Plugin parses user-agent strings at the enrich stage.
type Plugin struct {
	property string
	loaded   atomic.Bool
}

// New creates an unloaded useragent plugin.
func New() *Plugin {
	return &Plugin{}
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string {
	return "useragent"
}

// Stage implements plugin.Plugin.
func (p *Plugin) Stage() plugin.Stage {
	return plugin.StageEnrich
}

// Load implements plugin.Plugin. Config keys:
//
//	property  string  event property holding the user-agent string
//	                  (default "user_agent")
func (p *Plugin) Load(ctx context.Context, cfg config.Config) error {
	p.property = cfg.String("property", "user_agent")
	p.loaded.Store(true)
	return nil
}

// Ready implements plugin.Plugin.
func (p *Plugin) Ready() bool {
	return p.loaded.Load()
}

// Process implements plugin.Plugin. Events without the configured
// property, or with a non-string value, pass through unchanged.
func (p *Plugin) Process(ctx context.Context, evt *event.Event) error {
	raw, ok := evt.Get(p.property)
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return nil
	}

	parsed := ua.Parse(s)

	if err := setIf(evt, "browser", parsed.Name); err != nil {
		return err
	}
	if err := setIf(evt, "browser_version", parsed.Version); err != nil {
		return err
	}
	if err := setIf(evt, "os", parsed.OS); err != nil {
		return err
	}
	if err := setIf(evt, "os_version", parsed.OSVersion); err != nil {
		return err
	}
	if err := setIf(evt, "device", parsed.Device); err != nil {
		return err
	}
	if parsed.Bot {
		return evt.Set("bot", true)
	}
	return nil
}

// setIf sets a property unless the value is empty.
func setIf(evt *event.Event, key, value string) error {
	if value == "" {
		return nil
	}
	return evt.Set(key, value)
}

var _ plugin.Plugin = (*Plugin)(nil)
