// Package plugin defines the contract between the beacon engine and the
// pipeline stages it runs events through.
//
// A plugin declares a stage, loads once, and then processes events. The
// three stages partition the pipeline:
//   - pre: sequential transforms; a failure aborts the event's delivery
//   - enrich: sequential transforms; failures are absorbed per plugin
//   - destination: concurrent fan-out of the sealed event; any failure
//     re-enqueues the whole event
//
// Implementations that only need a process function can use NewFunc
// instead of writing a full type.
package plugin

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
)

// Stage identifies where in the pipeline a plugin runs.
type Stage string

const (
	// StagePre runs before enrichment. Sequential; failure aborts the event.
	StagePre Stage = "pre"

	// StageEnrich runs after pre and before sealing. Sequential; a failing
	// plugin is skipped and the event proceeds unchanged by it.
	StageEnrich Stage = "enrich"

	// StageDestination runs after sealing. All destination plugins receive
	// the same sealed event concurrently.
	StageDestination Stage = "destination"
)

// Valid reports whether s is one of the three pipeline stages.
func (s Stage) Valid() bool {
	switch s {
	case StagePre, StageEnrich, StageDestination:
		return true
	}
	return false
}

// ErrDrop signals that an event should be discarded without retry.
// A pre or destination plugin returns it (directly or wrapped) to tell the
// engine the event is unwanted rather than undeliverable.
var ErrDrop = errors.New("drop event")

// Plugin is a pipeline stage implementation.
//
// Load is called once, when the plugin is registered with an engine.
// Ready gates flushing: the engine delivers nothing while any registered
// plugin reports not ready. Process is called once per event per flush
// attempt; pre and enrich plugins may mutate the event, destination
// plugins receive it sealed.
type Plugin interface {
	// Name identifies the plugin in logs and archive records.
	Name() string

	// Stage returns the pipeline stage this plugin runs in.
	Stage() Stage

	// Load prepares the plugin (open connections, parse options). It is
	// called before the plugin sees any events.
	Load(ctx context.Context, cfg config.Config) error

	// Ready reports whether the plugin can process events.
	Ready() bool

	// Process handles one event. Pre and enrich plugins may mutate it;
	// destination plugins deliver it.
	Process(ctx context.Context, evt *event.Event) error
}

// Func adapts plain functions to the Plugin interface. The zero value is
// not usable; construct with NewFunc.
type Func struct {
	name    string
	stage   Stage
	process func(ctx context.Context, evt *event.Event) error
	load    func(ctx context.Context, cfg config.Config) error
	ready   func() bool
	loaded  atomic.Bool
}

// FuncOption configures a Func plugin.
type FuncOption func(*Func)

// WithLoad sets a load function. The plugin reports ready only after the
// load function returns nil.
func WithLoad(fn func(ctx context.Context, cfg config.Config) error) FuncOption {
	return func(f *Func) {
		f.load = fn
	}
}

// WithReady overrides the readiness check entirely, replacing the default
// loaded-flag behavior.
func WithReady(fn func() bool) FuncOption {
	return func(f *Func) {
		f.ready = fn
	}
}

// NewFunc creates a Plugin from a process function. Without options the
// plugin loads instantly and reports ready once loaded.
func NewFunc(name string, stage Stage, process func(ctx context.Context, evt *event.Event) error, opts ...FuncOption) *Func {
	f := &Func{
		name:    name,
		stage:   stage,
		process: process,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name implements Plugin.
func (f *Func) Name() string {
	return f.name
}

// Stage implements Plugin.
func (f *Func) Stage() Stage {
	return f.stage
}

// Load implements Plugin. A configured load function runs first; the
// loaded flag is set only on success.
func (f *Func) Load(ctx context.Context, cfg config.Config) error {
	if f.load != nil {
		if err := f.load(ctx, cfg); err != nil {
			return err
		}
	}
	f.loaded.Store(true)
	return nil
}

// Ready implements Plugin.
func (f *Func) Ready() bool {
	if f.ready != nil {
		return f.ready()
	}
	return f.loaded.Load()
}

// Process implements Plugin.
func (f *Func) Process(ctx context.Context, evt *event.Event) error {
	if f.process == nil {
		return nil
	}
	return f.process(ctx, evt)
}
