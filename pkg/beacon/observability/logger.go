// Package observability provides production-grade observability features
// for beacon: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds event context to a logger.
// Returns a new logger with event_id, event_name, and attempt fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "evt-123", "page_view", 1)
//	enriched.Info("delivering") // includes event_id, event_name, attempt
func EnrichLogger(logger *slog.Logger, eventID, eventName string, attempt int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("event_id", eventID),
		slog.String("event_name", eventName),
		slog.Int("attempt", attempt),
	)
}

// LogDispatch logs an event entering the pending queue.
func LogDispatch(logger *slog.Logger, eventID, eventName string, pending int) {
	if logger == nil {
		return
	}
	logger.Debug("event dispatched",
		slog.String("event_id", eventID),
		slog.String("event_name", eventName),
		slog.Int("pending", pending),
	)
}

// LogFlushStart logs the start of a flush cycle.
func LogFlushStart(logger *slog.Logger, pending int) {
	if logger == nil {
		return
	}
	logger.Debug("flush starting",
		slog.Int("pending", pending),
	)
}

// LogFlushComplete logs the end of a flush cycle.
func LogFlushComplete(logger *slog.Logger, delivered, requeued int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("flush completed",
		slog.Int("delivered", delivered),
		slog.Int("requeued", requeued),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNotReady logs a flush cycle skipped because a plugin is not ready.
func LogNotReady(logger *slog.Logger, pending int) {
	if logger == nil {
		return
	}
	logger.Warn("pipeline not ready, deferring flush",
		slog.Int("pending", pending),
	)
}

// LogDelivery logs successful delivery of one event.
func LogDelivery(logger *slog.Logger, eventID string, attempt int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("event delivered",
		slog.String("event_id", eventID),
		slog.Int("attempt", attempt),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogDeliveryFailure logs a failed delivery attempt that will be retried.
func LogDeliveryFailure(logger *slog.Logger, eventID string, attempt int, err error) {
	if logger == nil {
		return
	}
	logger.Warn("event delivery failed, re-enqueued",
		slog.String("event_id", eventID),
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
	)
}

// LogDiscard logs an event the engine gave up on.
func LogDiscard(logger *slog.Logger, eventID string, attempts int, err error) {
	if logger == nil {
		return
	}
	logger.Error("event discarded",
		slog.String("event_id", eventID),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}

// LogDrop logs an event dropped at a plugin's request.
func LogDrop(logger *slog.Logger, eventID, pluginName string) {
	if logger == nil {
		return
	}
	logger.Debug("event dropped",
		slog.String("event_id", eventID),
		slog.String("plugin", pluginName),
	)
}

// LogEnrichFailure logs an enrichment plugin failure that was absorbed
// (non-fatal, the event proceeds unchanged by that plugin).
func LogEnrichFailure(logger *slog.Logger, eventID, pluginName string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("enrichment failed, continuing",
		slog.String("event_id", eventID),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}

// LogPluginLoad logs successful plugin load.
func LogPluginLoad(logger *slog.Logger, pluginName, stage string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("plugin loaded",
		slog.String("plugin", pluginName),
		slog.String("stage", stage),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogPluginLoadError logs plugin load failure.
func LogPluginLoadError(logger *slog.Logger, pluginName string, err error) {
	if logger == nil {
		return
	}
	logger.Error("plugin load failed",
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}

// LogArchiveError logs archive write failure (non-fatal).
func LogArchiveError(logger *slog.Logger, eventID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("archive write failed",
		slog.String("event_id", eventID),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
