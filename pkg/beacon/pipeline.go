package beacon

import (
	"context"
	"errors"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/observability"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
)

// flushOne runs a single event through the staged pipeline. attempt is
// the 1-based number of this delivery attempt.
//
// Stage order:
//  1. readiness gate: any plugin still loading returns ErrNotReady
//  2. pre: sequential, first failure aborts the attempt
//  3. enrich: sequential, failures are logged and absorbed
//  4. seal: the event becomes immutable
//  5. destinations: concurrent, any failure fails the attempt
//
// A sealed event skips straight to the destinations, so retries do not
// re-run pre or enrich plugins.
func (e *Engine) flushOne(ctx context.Context, evt *event.Event, attempt int) (err error) {
	if !e.registry.AllReady() {
		return ErrNotReady
	}

	ctx, span := e.spans.StartEventSpan(ctx, evt.ID(), evt.Name(), attempt)
	defer func() {
		e.spans.EndSpanWithError(span, err)
	}()

	if !evt.Sealed() {
		for _, p := range e.registry.Stage(plugin.StagePre) {
			if perr := e.process(ctx, p, evt); perr != nil {
				err = &StageError{Stage: plugin.StagePre, Plugin: p.Name(), EventID: evt.ID(), Err: perr}
				return err
			}
		}

		for _, p := range e.registry.Stage(plugin.StageEnrich) {
			if perr := e.process(ctx, p, evt); perr != nil {
				observability.LogEnrichFailure(e.logger, evt.ID(), p.Name(), perr)
				evt.Increment("enrich_failed")
			}
		}

		evt.Seal()
	}

	var g errgroup.Group
	for _, p := range e.registry.Stage(plugin.StageDestination) {
		g.Go(func() error {
			if perr := e.process(ctx, p, evt); perr != nil {
				return &StageError{Stage: plugin.StageDestination, Plugin: p.Name(), EventID: evt.ID(), Err: perr}
			}
			return nil
		})
	}
	if gerr := g.Wait(); gerr != nil {
		err = gerr
		return err
	}

	evt.Increment("delivered")
	return nil
}

// process invokes a single plugin with the engine's timeout, a plugin
// span, and panic recovery. A panic becomes a PanicError so one faulty
// plugin cannot kill the flush goroutine.
func (e *Engine) process(ctx context.Context, p plugin.Plugin, evt *event.Event) (err error) {
	if e.procTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.procTimeout)
		defer cancel()
	}

	ctx, span := e.spans.StartPluginSpan(ctx, p.Name(), string(p.Stage()))
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Plugin: p.Name(), Value: r, Stack: string(debug.Stack())}
		}
		e.spans.EndSpanWithError(span, err)
	}()

	return p.Process(ctx, evt)
}

// isDrop reports whether err signals an intentional drop rather than a
// delivery failure.
func isDrop(err error) bool {
	return errors.Is(err, plugin.ErrDrop)
}
