package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the beacon tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("beacon")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartFlushSpan starts a span for one flush cycle.
	// Returns the context with span and the span itself.
	StartFlushSpan(ctx context.Context, pending int) (context.Context, trace.Span)

	// StartEventSpan starts a span for one event's pipeline pass.
	// The event span should be a child of the flush span.
	StartEventSpan(ctx context.Context, eventID, eventName string, attempt int) (context.Context, trace.Span)

	// StartPluginSpan starts a span for a plugin's Process call.
	StartPluginSpan(ctx context.Context, pluginName, stage string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartFlushSpan starts a span for one flush cycle.
func (m *otelSpanManager) StartFlushSpan(ctx context.Context, pending int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "beacon.flush",
		trace.WithAttributes(
			attribute.Int("pending", pending),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartEventSpan starts a span for one event's pipeline pass.
func (m *otelSpanManager) StartEventSpan(ctx context.Context, eventID, eventName string, attempt int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "beacon.event",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("event.name", eventName),
			attribute.Int("event.attempt", attempt),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartPluginSpan starts a span for a plugin's Process call.
func (m *otelSpanManager) StartPluginSpan(ctx context.Context, pluginName, stage string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "beacon.plugin."+pluginName,
		trace.WithAttributes(
			attribute.String("plugin.name", pluginName),
			attribute.String("plugin.stage", stage),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
