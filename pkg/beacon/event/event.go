// Package event defines the unit of work flowing through the beacon pipeline.
//
// An Event carries a named payload of properties plus two side channels the
// engine and plugins report through: structured logging and metric emission.
// Events are mutable while open and become immutable once sealed. Sealing
// happens exactly once, between the enrichment and destination stages, so
// every destination observes the same payload.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSealed is returned by mutation attempts on a sealed event.
var ErrSealed = errors.New("event is sealed")

// Recorder receives metric emissions from an event's stats channel.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// Increment bumps a named counter by one.
	Increment(name string)

	// Gauge records an instantaneous value for a named gauge.
	Gauge(name string, value float64)
}

// Event is a unit of work delivered through the staged pipeline.
//
// Property access is safe for concurrent use; destination plugins all read
// the same sealed event in parallel. The engine owns the event exclusively
// from dispatch until it is delivered or discarded.
type Event struct {
	id        string
	name      string
	timestamp time.Time

	mu     sync.RWMutex
	props  map[string]any
	sealed bool

	logger *slog.Logger
	stats  Recorder
}

// Option configures event creation.
type Option func(*Event)

// WithID sets a specific event ID (default: auto-generated UUID).
func WithID(id string) Option {
	return func(e *Event) {
		e.id = id
	}
}

// WithTimestamp sets a specific timestamp (default: time.Now()).
func WithTimestamp(t time.Time) Option {
	return func(e *Event) {
		e.timestamp = t
	}
}

// WithProperty sets a single payload property.
func WithProperty(key string, value any) Option {
	return func(e *Event) {
		e.props[key] = value
	}
}

// WithProperties merges the given map into the payload.
func WithProperties(props map[string]any) Option {
	return func(e *Event) {
		for k, v := range props {
			e.props[k] = v
		}
	}
}

// WithLogger attaches a logger for the event's log side channel.
// Without one, Log calls are dropped.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Event) {
		e.logger = logger
	}
}

// WithStats attaches a metrics recorder for the event's stats side channel.
// Without one, Increment and Gauge calls are dropped.
func WithStats(stats Recorder) Option {
	return func(e *Event) {
		e.stats = stats
	}
}

// New creates an open event with the given name.
func New(name string, opts ...Option) *Event {
	e := &Event{
		id:        uuid.New().String(),
		name:      name,
		timestamp: time.Now(),
		props:     make(map[string]any),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ID returns the unique event identifier.
func (e *Event) ID() string {
	return e.id
}

// Name returns the event name.
func (e *Event) Name() string {
	return e.name
}

// Timestamp returns when the event was created.
func (e *Event) Timestamp() time.Time {
	return e.timestamp
}

// Set writes a payload property. It returns ErrSealed once the event has
// been sealed; the payload is left unchanged in that case.
func (e *Event) Set(key string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sealed {
		return ErrSealed
	}
	e.props[key] = value
	return nil
}

// Delete removes a payload property. It returns ErrSealed once the event
// has been sealed.
func (e *Event) Delete(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sealed {
		return ErrSealed
	}
	delete(e.props, key)
	return nil
}

// Get returns the payload property for key and whether it is present.
func (e *Event) Get(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, ok := e.props[key]
	return v, ok
}

// Properties returns a copy of the payload. Mutating the copy does not
// affect the event.
func (e *Event) Properties() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	props := make(map[string]any, len(e.props))
	for k, v := range e.props {
		props[k] = v
	}
	return props
}

// Seal transitions the event to immutable. Sealing an already-sealed event
// is a no-op, so retried deliveries can pass through the pipeline safely.
func (e *Event) Seal() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sealed = true
}

// Sealed reports whether the event has been sealed.
func (e *Event) Sealed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sealed
}

// Log emits a message on the event's log side channel, tagged with the
// event identity. Safe to call without an attached logger.
func (e *Event) Log(level slog.Level, msg string, args ...any) {
	if e.logger == nil {
		return
	}
	all := make([]any, 0, len(args)+4)
	all = append(all, "event_id", e.id, "event_name", e.name)
	all = append(all, args...)
	e.logger.Log(context.Background(), level, msg, all...)
}

// Increment bumps a named counter on the event's stats side channel.
// Safe to call without an attached recorder.
func (e *Event) Increment(name string) {
	if e.stats == nil {
		return
	}
	e.stats.Increment(name)
}

// Gauge records a value on the event's stats side channel. Safe to call
// without an attached recorder.
func (e *Event) Gauge(name string, value float64) {
	if e.stats == nil {
		return
	}
	e.stats.Gauge(name, value)
}

// MarshalJSON serializes the event identity and payload.
func (e *Event) MarshalJSON() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return json.Marshal(struct {
		ID         string         `json:"id"`
		Name       string         `json:"name"`
		Timestamp  time.Time      `json:"timestamp"`
		Properties map[string]any `json:"properties,omitempty"`
	}{
		ID:         e.id,
		Name:       e.name,
		Timestamp:  e.timestamp,
		Properties: e.props,
	})
}
