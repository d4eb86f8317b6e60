// Package filter provides a pre-stage plugin that drops events not
// matching a boolean expression.
//
// Expressions compare event properties (and the built-in "name"
// variable) with ==, !=, <, >, <=, >=, and contains, combined with
// and/or/not. Non-matching events return plugin.ErrDrop, so the engine
// discards them without retry.
//
//	name == "page_view" and path contains "/pricing"
//	amount >= 100 or vip
//	not bot
package filter

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
)

// Plugin evaluates a boolean expression at the pre stage.
type Plugin struct {
	expr   string
	loaded atomic.Bool
}

// New creates an unloaded filter plugin.
func New() *Plugin {
	return &Plugin{}
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string {
	return "filter"
}

// Stage implements plugin.Plugin.
func (p *Plugin) Stage() plugin.Stage {
	return plugin.StagePre
}

// Load implements plugin.Plugin. Config keys:
//
//	expr  string  boolean expression; events not matching are dropped
func (p *Plugin) Load(ctx context.Context, cfg config.Config) error {
	expr := cfg.String("expr", "")
	if expr == "" {
		return fmt.Errorf("filter: expr is required")
	}
	p.expr = expr
	p.loaded.Store(true)
	return nil
}

// Ready implements plugin.Plugin.
func (p *Plugin) Ready() bool {
	return p.loaded.Load()
}

// Process implements plugin.Plugin.
func (p *Plugin) Process(ctx context.Context, evt *event.Event) error {
	vars := evt.Properties()
	vars["name"] = evt.Name()

	if eval(p.expr, vars) {
		return nil
	}
	return fmt.Errorf("%w: event does not match %q", plugin.ErrDrop, p.expr)
}

var _ plugin.Plugin = (*Plugin)(nil)
