package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/randalmurphal/beacon/pkg/beacon/event"
)

// MetricsRecorder records beacon engine metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records an event entering the pending queue.
	RecordDispatch(ctx context.Context, eventName string)

	// RecordDelivery records a successful delivery with its duration and
	// the number of destinations that received the event.
	RecordDelivery(ctx context.Context, eventName string, duration time.Duration, destinations int)

	// RecordRequeue records a failed delivery attempt that was re-enqueued.
	RecordRequeue(ctx context.Context, eventName string, attempt int)

	// RecordDiscard records an event the engine gave up on.
	RecordDiscard(ctx context.Context, eventName string)

	// RecordDrop records an event dropped at a plugin's request.
	RecordDrop(ctx context.Context, eventName string)

	// RecordFlush records a completed flush cycle.
	RecordFlush(ctx context.Context, processed int, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatches      metric.Int64Counter
	deliveries      metric.Int64Counter
	deliveryLatency metric.Float64Histogram
	requeues        metric.Int64Counter
	discards        metric.Int64Counter
	drops           metric.Int64Counter
	flushes         metric.Int64Counter
	flushLatency    metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("beacon")

	dispatches, err := meter.Int64Counter("beacon.events.dispatched",
		metric.WithDescription("Number of events dispatched"),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter("beacon.events.delivered",
		metric.WithDescription("Number of events delivered to all destinations"),
	)
	if err != nil {
		return nil, err
	}

	deliveryLatency, err := meter.Float64Histogram("beacon.delivery.latency_ms",
		metric.WithDescription("Per-event pipeline latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	requeues, err := meter.Int64Counter("beacon.events.requeued",
		metric.WithDescription("Number of failed delivery attempts re-enqueued"),
	)
	if err != nil {
		return nil, err
	}

	discards, err := meter.Int64Counter("beacon.events.discarded",
		metric.WithDescription("Number of events discarded after exhausting retries"),
	)
	if err != nil {
		return nil, err
	}

	drops, err := meter.Int64Counter("beacon.events.dropped",
		metric.WithDescription("Number of events dropped at plugin request"),
	)
	if err != nil {
		return nil, err
	}

	flushes, err := meter.Int64Counter("beacon.flush.cycles",
		metric.WithDescription("Number of completed flush cycles"),
	)
	if err != nil {
		return nil, err
	}

	flushLatency, err := meter.Float64Histogram("beacon.flush.latency_ms",
		metric.WithDescription("Flush cycle duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatches:      dispatches,
		deliveries:      deliveries,
		deliveryLatency: deliveryLatency,
		requeues:        requeues,
		discards:        discards,
		drops:           drops,
		flushes:         flushes,
		flushLatency:    flushLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordDispatch records an event entering the pending queue.
func (m *otelMetrics) RecordDispatch(ctx context.Context, eventName string) {
	m.dispatches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_name", eventName),
	))
}

// RecordDelivery records a successful delivery.
func (m *otelMetrics) RecordDelivery(ctx context.Context, eventName string, duration time.Duration, destinations int) {
	attrs := []attribute.KeyValue{
		attribute.String("event_name", eventName),
	}
	m.deliveries.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.deliveryLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(
		attribute.String("event_name", eventName),
		attribute.Int("destinations", destinations),
	))
}

// RecordRequeue records a failed delivery attempt.
func (m *otelMetrics) RecordRequeue(ctx context.Context, eventName string, attempt int) {
	m.requeues.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_name", eventName),
		attribute.Int("attempt", attempt),
	))
}

// RecordDiscard records a discarded event.
func (m *otelMetrics) RecordDiscard(ctx context.Context, eventName string) {
	m.discards.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_name", eventName),
	))
}

// RecordDrop records a dropped event.
func (m *otelMetrics) RecordDrop(ctx context.Context, eventName string) {
	m.drops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_name", eventName),
	))
}

// RecordFlush records a completed flush cycle.
func (m *otelMetrics) RecordFlush(ctx context.Context, processed int, duration time.Duration) {
	m.flushes.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("processed", processed),
	))
	m.flushLatency.Record(ctx, float64(duration.Milliseconds()))
}

// eventRecorder bridges an event's stats side channel into OTel. Counter
// and gauge names arrive as attributes on two shared instruments.
type eventRecorder struct {
	counters metric.Int64Counter
	values   metric.Float64Histogram
}

var (
	defaultEventRecorder     *eventRecorder
	defaultEventRecorderOnce sync.Once
	defaultEventRecorderErr  error
)

func newEventRecorder() (*eventRecorder, error) {
	meter := otel.Meter("beacon")

	counters, err := meter.Int64Counter("beacon.event.counters",
		metric.WithDescription("Counters emitted on event stats channels"),
	)
	if err != nil {
		return nil, err
	}

	values, err := meter.Float64Histogram("beacon.event.gauges",
		metric.WithDescription("Gauge values emitted on event stats channels"),
	)
	if err != nil {
		return nil, err
	}

	return &eventRecorder{counters: counters, values: values}, nil
}

// NewEventRecorder returns an event.Recorder that forwards event stats
// emissions to OpenTelemetry. If initialization fails, returns a no-op
// recorder.
func NewEventRecorder() event.Recorder {
	defaultEventRecorderOnce.Do(func() {
		defaultEventRecorder, defaultEventRecorderErr = newEventRecorder()
	})
	if defaultEventRecorderErr != nil {
		slog.Warn("event recorder initialization failed, using no-op recorder",
			slog.String("error", defaultEventRecorderErr.Error()))
		return NoopEventRecorder{}
	}
	return defaultEventRecorder
}

// Increment implements event.Recorder.
func (r *eventRecorder) Increment(name string) {
	r.counters.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("name", name),
	))
}

// Gauge implements event.Recorder.
func (r *eventRecorder) Gauge(name string, value float64) {
	r.values.Record(context.Background(), value, metric.WithAttributes(
		attribute.String("name", name),
	))
}
