package beacon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/beacon/pkg/beacon/archive"
	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/observability"
	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
)

// DefaultFlushInterval is the cadence of the recurring flush cycle.
const DefaultFlushInterval = 3 * time.Second

// Engine buffers dispatched events and delivers them through a staged
// plugin pipeline on a recurring flush cycle.
//
// Dispatch never blocks and never fails: events land in an unbounded
// FIFO buffer and a single background goroutine drains it every flush
// interval. Failed deliveries are re-enqueued with retry state until
// the retry policy discards them.
type Engine struct {
	registry *plugin.Registry
	queue    *queue

	interval    time.Duration
	retry       RetryPolicy
	notReady    NotReadyPolicy
	procTimeout time.Duration
	cfg         config.Config
	onDiscard   func(evt *event.Event, attempts int, err error)

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	store   archive.Store

	flushMu sync.Mutex // serializes drains
	regMu   sync.Mutex // serializes hot registration

	closed    atomic.Bool
	closeOnce sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New constructs an engine, loads every plugin concurrently, and
// starts the flush loop. If any load fails the engine is not started
// and the first failure is returned wrapped in a PluginLoadError.
//
// Each plugin's Load receives its named section of the engine config
// (WithConfig / FromConfig).
func New(ctx context.Context, plugins []plugin.Plugin, opts ...Option) (*Engine, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	e := &Engine{
		registry: plugin.NewRegistry(),
		queue:    newQueue(),
		interval: DefaultFlushInterval,
		retry:    DefaultRetryPolicy,
		notReady: NotReadyRequeue,
		cfg:      config.New(nil),
		logger:   slog.Default(),
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	seen := make(map[string]struct{}, len(plugins))
	for _, p := range plugins {
		if err := validatePlugin(p); err != nil {
			return nil, err
		}
		if _, ok := seen[p.Name()]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePlugin, p.Name())
		}
		seen[p.Name()] = struct{}{}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range plugins {
		g.Go(func() error {
			return e.loadPlugin(gctx, p)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, p := range plugins {
		e.registry.Add(p)
	}

	go e.run()
	return e, nil
}

// validatePlugin rejects nil plugins and unknown stages.
func validatePlugin(p plugin.Plugin) error {
	if p == nil {
		return ErrNilPlugin
	}
	if !p.Stage().Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, p.Stage())
	}
	return nil
}

// loadPlugin runs a single plugin's Load with its config section.
func (e *Engine) loadPlugin(ctx context.Context, p plugin.Plugin) error {
	done := observability.TimedOperation()
	if err := p.Load(ctx, e.cfg.Sub(p.Name())); err != nil {
		observability.LogPluginLoadError(e.logger, p.Name(), err)
		return &PluginLoadError{Plugin: p.Name(), Err: err}
	}
	observability.LogPluginLoad(e.logger, p.Name(), string(p.Stage()), done())
	return nil
}

// Register hot-adds a plugin to a running engine, awaiting its load.
// The plugin joins the pipeline only after Load succeeds; a failed
// load leaves the engine unchanged.
func (e *Engine) Register(ctx context.Context, p plugin.Plugin) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validatePlugin(p); err != nil {
		return err
	}

	e.regMu.Lock()
	defer e.regMu.Unlock()

	for _, existing := range e.registry.All() {
		if existing.Name() == p.Name() {
			return fmt.Errorf("%w: %q", ErrDuplicatePlugin, p.Name())
		}
	}
	if err := e.loadPlugin(ctx, p); err != nil {
		return err
	}
	e.registry.Add(p)
	return nil
}

// Dispatch appends an event to the pending buffer. It never blocks
// and never fails; delivery happens on a later flush cycle. The event
// is returned for chaining. A nil event is ignored.
func (e *Engine) Dispatch(evt *event.Event) *event.Event {
	if evt == nil {
		return nil
	}
	e.queue.push(evt)
	pending := e.queue.len()

	evt.Log(slog.LevelDebug, "event dispatched", "pending", pending)
	evt.Increment("dispatched")
	observability.LogDispatch(e.logger, evt.ID(), evt.Name(), pending)
	e.metrics.RecordDispatch(context.Background(), evt.Name())
	return evt
}

// Flush runs one drain cycle now, without waiting for the timer. It
// returns the events delivered during the cycle. An empty buffer
// returns an empty result and no error.
//
// Flush and the background loop never run drains concurrently; a
// manual Flush during a timer drain waits its turn.
func (e *Engine) Flush(ctx context.Context) ([]*event.Event, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return e.drain(ctx)
}

// drain processes up to the number of items pending at cycle start.
// Items re-enqueued during the cycle wait for the next one, which
// keeps a permanently failing event from spinning the loop.
func (e *Engine) drain(ctx context.Context) ([]*event.Event, error) {
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	n := e.queue.len()
	if n == 0 {
		return nil, nil
	}

	if e.notReady == NotReadyRequeue && !e.registry.AllReady() {
		observability.LogNotReady(e.logger, n)
		return nil, nil
	}

	done := observability.TimedOperation()
	ctx, span := e.spans.StartFlushSpan(ctx, n)
	var drainErr error
	defer func() {
		e.spans.EndSpanWithError(span, drainErr)
	}()
	observability.LogFlushStart(e.logger, n)

	destinations := len(e.registry.Stage(plugin.StageDestination))

	var flushed []*event.Event
	requeued := 0
loop:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			drainErr = ctx.Err()
			return flushed, drainErr
		default:
		}

		it, ok := e.queue.pop()
		if !ok {
			break
		}

		now := time.Now()
		if !it.nextAttempt.IsZero() && now.Before(it.nextAttempt) {
			e.queue.requeue(it)
			continue
		}

		attempt := it.attempts + 1
		evtDone := observability.TimedOperation()
		err := e.flushOne(ctx, it.evt, attempt)

		switch {
		case err == nil:
			it.attempts = attempt
			ms := evtDone()
			it.evt.Gauge("delivery_ms", ms)
			observability.LogDelivery(e.logger, it.evt.ID(), attempt, ms)
			e.metrics.RecordDelivery(ctx, it.evt.Name(), time.Duration(ms*float64(time.Millisecond)), destinations)
			e.archiveRecord(it, archive.OutcomeDelivered, nil)
			flushed = append(flushed, it.evt)

		case errors.Is(err, ErrNotReady):
			// a plugin registered or flipped mid-drain
			if e.notReady == NotReadyPass {
				observability.LogNotReady(e.logger, e.queue.len())
				flushed = append(flushed, it.evt)
				continue
			}
			e.queue.requeueFront(it)
			observability.LogNotReady(e.logger, e.queue.len())
			break loop

		case isDrop(err):
			it.attempts = attempt
			pluginName := ""
			var se *StageError
			if errors.As(err, &se) {
				pluginName = se.Plugin
			}
			observability.LogDrop(e.logger, it.evt.ID(), pluginName)
			it.evt.Increment("dropped")
			e.metrics.RecordDrop(ctx, it.evt.Name())
			e.archiveRecord(it, archive.OutcomeDropped, err)

		default:
			it.attempts = attempt
			it.lastErr = err
			it.evt.Increment("delivery_failed")
			if IsPermanent(err) || e.retry.Exhausted(it.attempts) {
				observability.LogDiscard(e.logger, it.evt.ID(), it.attempts, err)
				it.evt.Increment("discarded")
				e.metrics.RecordDiscard(ctx, it.evt.Name())
				e.archiveRecord(it, archive.OutcomeDiscarded, err)
				if e.onDiscard != nil {
					e.onDiscard(it.evt, it.attempts, err)
				}
			} else {
				it.nextAttempt = now.Add(e.retry.backoffFor(it.attempts))
				e.queue.requeue(it)
				requeued++
				observability.LogDeliveryFailure(e.logger, it.evt.ID(), it.attempts, err)
				e.metrics.RecordRequeue(ctx, it.evt.Name(), it.attempts)
			}
		}
	}

	ms := done()
	observability.LogFlushComplete(e.logger, len(flushed), requeued, ms)
	e.metrics.RecordFlush(ctx, n, time.Duration(ms*float64(time.Millisecond)))
	return flushed, nil
}

// archiveRecord writes a terminal outcome to the archive store, if one
// is configured. Archive failures are logged and never affect the
// event's outcome.
func (e *Engine) archiveRecord(it item, outcome archive.Outcome, cause error) {
	if e.store == nil {
		return
	}

	payload, err := json.Marshal(it.evt)
	if err != nil {
		payload = nil
	}
	entry := archive.Entry{
		EventID:   it.evt.ID(),
		EventName: it.evt.Name(),
		Payload:   payload,
		Outcome:   outcome,
		Attempts:  it.attempts,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}
	if err := e.store.Record(entry); err != nil {
		observability.LogArchiveError(e.logger, it.evt.ID(), err)
	}
}

// run is the flush loop. The timer re-arms only after a drain
// completes, so a slow drain stretches the cycle instead of stacking
// concurrent drains.
func (e *Engine) run() {
	defer close(e.doneCh)

	timer := time.NewTimer(e.interval)
	defer timer.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-timer.C:
			_, _ = e.drain(context.Background())
			timer.Reset(e.interval)
		}
	}
}

// Close stops the flush loop and waits for an in-flight drain to
// finish. It does not drain remaining events; call Flush first for a
// final sweep. The archive store is not closed; the caller owns it.
// Close is idempotent.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.stopCh)
		<-e.doneCh
	})
	return nil
}

// Pending returns the number of buffered events.
func (e *Engine) Pending() int {
	return e.queue.len()
}

// PendingEvents returns the buffered events in dispatch order.
func (e *Engine) PendingEvents() []*event.Event {
	return e.queue.events()
}
