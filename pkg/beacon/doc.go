/*
Package beacon is an in-process buffering engine for telemetry events.

# Overview

beacon sits between event producers and event destinations. Producers
call Dispatch, which appends to an unbounded in-memory buffer and
returns immediately. A background flush loop drains the buffer on a
fixed cadence, running each event through a staged plugin pipeline:

  - pre: validation and filtering, run in order, first failure aborts
  - enrich: annotation, run in order, failures are absorbed
  - destination: delivery, run concurrently, any failure retries

After enrichment the event is sealed and no plugin can mutate it.
Failed deliveries go back to the buffer with retry state; the retry
policy decides when to give up.

# Basic Usage

Build plugins, construct an engine, dispatch events:

	scrub := plugin.NewFunc("scrub", plugin.StagePre,
	    func(ctx context.Context, evt *event.Event) error {
	        return evt.Delete("password")
	    })

	hook := webhook.New()

	engine, err := beacon.New(ctx, []plugin.Plugin{scrub, hook},
	    beacon.WithFlushInterval(3*time.Second),
	    beacon.WithConfig(cfg),
	)
	if err != nil {
	    log.Fatal(err)
	}
	defer engine.Close()

	engine.Dispatch(event.New("page_view",
	    event.WithProperty("path", "/pricing"),
	))

Delivery happens on the next flush cycle. Call Flush to drain on
demand:

	delivered, err := engine.Flush(ctx)

# Retry and Discard

A failed delivery re-enqueues the whole event; the next attempt
re-delivers to every destination, including ones that already
succeeded. Destinations that cannot tolerate duplicates must
deduplicate on the event ID.

The RetryPolicy bounds attempts and spaces them with exponential
backoff. An error wrapped with Permanent skips remaining attempts. A
pre plugin returning plugin.ErrDrop removes the event without retry.

# Observability

The engine logs through log/slog and exports OpenTelemetry metrics
and traces when configured:

	engine, err := beacon.New(ctx, plugins,
	    beacon.WithLogger(logger),
	    beacon.WithMetrics(observability.NewMetricsRecorder()),
	    beacon.WithSpans(observability.NewSpanManager()),
	)

Events carry optional per-event log and stats channels
(event.WithLogger, event.WithStats) that the engine feeds during the
event's lifecycle.

# Archive

An archive.Store records every terminal outcome (delivered, dropped,
discarded) with the event payload and attempt count. The engine never
reads the archive; it exists for inspection and audit:

	store, err := archive.NewSQLiteStore("beacon.db")
	engine, err := beacon.New(ctx, plugins, beacon.WithArchive(store))
*/
package beacon
