package beacon

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/beacon/pkg/beacon/archive"
	"github.com/randalmurphal/beacon/pkg/beacon/config"
	"github.com/randalmurphal/beacon/pkg/beacon/event"
	"github.com/randalmurphal/beacon/pkg/beacon/observability"
)

// NotReadyPolicy decides what a flush cycle does with events while any
// registered plugin is still loading.
type NotReadyPolicy int

const (
	// NotReadyRequeue keeps events pending until every plugin reports
	// ready. Nothing is lost; delivery is deferred. This is the
	// default.
	NotReadyRequeue NotReadyPolicy = iota

	// NotReadyPass reports events as flushed without delivering them.
	// This matches engines that treat the readiness check as a silent
	// no-op; the event is gone even though no destination saw it.
	NotReadyPass
)

// String returns the policy name.
func (p NotReadyPolicy) String() string {
	switch p {
	case NotReadyRequeue:
		return "requeue"
	case NotReadyPass:
		return "pass"
	default:
		return "unknown"
	}
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithFlushInterval sets the cadence of the recurring flush cycle.
// Default: 3s. The timer re-arms after each drain completes, so slow
// drains stretch the cycle instead of stacking.
func WithFlushInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithRetryPolicy sets the delivery retry policy.
// Default: DefaultRetryPolicy (five attempts, no backoff).
func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) {
		e.retry = p
	}
}

// WithNotReadyPolicy sets what flush does while plugins are loading.
// Default: NotReadyRequeue.
func WithNotReadyPolicy(p NotReadyPolicy) Option {
	return func(e *Engine) {
		e.notReady = p
	}
}

// WithProcessTimeout bounds each plugin Process call. Zero means no
// timeout. Default: 0.
func WithProcessTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.procTimeout = d
		}
	}
}

// WithLogger sets the engine's structured logger.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
// Default: observability.NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithSpans sets the span manager for distributed tracing.
// Default: observability.NoopSpanManager.
func WithSpans(sm observability.SpanManager) Option {
	return func(e *Engine) {
		if sm != nil {
			e.spans = sm
		}
	}
}

// WithArchive sets the terminal-outcome archive. Every event that
// leaves the engine (delivered, dropped, or discarded) is recorded.
// The engine does not close the store; the caller owns it.
// Default: no archive.
func WithArchive(store archive.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithConfig sets the configuration passed to plugin loads. Each
// plugin receives its own named section (cfg.Sub(plugin.Name())).
// Default: empty config.
func WithConfig(cfg config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithOnDiscard sets a callback invoked when an event is discarded
// after exhausting its retry budget or failing permanently. The
// callback runs on the flush goroutine; keep it fast.
func WithOnDiscard(fn func(evt *event.Event, attempts int, err error)) Option {
	return func(e *Engine) {
		e.onDiscard = fn
	}
}

// FromConfig translates a config.Config into engine options. Keys:
//
//	flush_interval       duration   flush cycle cadence
//	process_timeout      duration   per-plugin Process bound
//	not_ready            string     "requeue" or "pass"
//	retry.max_attempts   int        0 retries forever
//	retry.initial_backoff duration
//	retry.max_backoff    duration
//	retry.backoff_factor float
//	retry.jitter         float
//
// The config itself is also installed via WithConfig so plugin loads
// see their named sections. Missing keys keep their defaults.
func FromConfig(cfg config.Config) []Option {
	opts := []Option{WithConfig(cfg)}

	if cfg.Has("flush_interval") {
		opts = append(opts, WithFlushInterval(cfg.Duration("flush_interval", 0)))
	}
	if cfg.Has("process_timeout") {
		opts = append(opts, WithProcessTimeout(cfg.Duration("process_timeout", 0)))
	}
	if cfg.String("not_ready", "") == "pass" {
		opts = append(opts, WithNotReadyPolicy(NotReadyPass))
	}

	if retryCfg := cfg.Sub("retry"); len(retryCfg.Raw()) > 0 {
		policy := DefaultRetryPolicy
		policy.MaxAttempts = retryCfg.Int("max_attempts", policy.MaxAttempts)
		policy.InitialBackoff = retryCfg.Duration("initial_backoff", policy.InitialBackoff)
		policy.MaxBackoff = retryCfg.Duration("max_backoff", policy.MaxBackoff)
		policy.BackoffFactor = retryCfg.Float("backoff_factor", policy.BackoffFactor)
		policy.Jitter = retryCfg.Float("jitter", policy.Jitter)
		opts = append(opts, WithRetryPolicy(policy))
	}

	return opts
}
