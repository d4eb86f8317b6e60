package beacon

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/beacon/pkg/beacon/plugin"
)

// Sentinel errors for engine lifecycle.
var (
	// ErrEngineClosed is returned by Flush after Close has completed.
	ErrEngineClosed = errors.New("engine is closed")

	// ErrNotReady indicates at least one registered plugin has not
	// finished loading. The flush cycle defers the event rather than
	// pushing it through an incomplete pipeline.
	ErrNotReady = errors.New("pipeline not ready")
)

// Sentinel errors for plugin registration.
var (
	// ErrNilPlugin is returned when registering a nil plugin.
	ErrNilPlugin = errors.New("plugin cannot be nil")

	// ErrInvalidStage is returned when a plugin reports a stage the
	// pipeline does not run.
	ErrInvalidStage = errors.New("invalid plugin stage")

	// ErrDuplicatePlugin is returned when a plugin with the same name
	// is already registered.
	ErrDuplicatePlugin = errors.New("plugin already registered")
)

// PluginLoadError wraps a failure from a plugin's Load.
type PluginLoadError struct {
	Plugin string // plugin name
	Err    error  // underlying error
}

// Error implements the error interface.
func (e *PluginLoadError) Error() string {
	return fmt.Sprintf("load plugin %q: %v", e.Plugin, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *PluginLoadError) Unwrap() error {
	return e.Err
}

// StageError wraps a plugin failure with the pipeline position where
// it happened. Enrichment failures are absorbed by the flush cycle and
// never surface as StageErrors; pre and destination failures do.
type StageError struct {
	Stage   plugin.Stage // stage that was running
	Plugin  string       // plugin that failed
	EventID string       // event being processed
	Err     error        // underlying error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s plugin %q failed for event %s: %v", e.Stage, e.Plugin, e.EventID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *StageError) Unwrap() error {
	return e.Err
}

// PanicError wraps a recovered panic from a plugin's Process. The
// engine converts panics to errors so one faulty plugin cannot take
// down the flush loop.
type PanicError struct {
	Plugin string // plugin that panicked
	Value  any    // recovered panic value
	Stack  string // stack trace at panic time
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("plugin %q panicked: %v", e.Plugin, e.Value)
}

// permanentError marks an error as non-retryable. Built by Permanent,
// detected by IsPermanent.
type permanentError struct {
	err error
}

// Error implements the error interface.
func (e *permanentError) Error() string {
	return e.err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *permanentError) Unwrap() error {
	return e.err
}

// Permanent marks err as non-retryable. When a destination returns a
// permanent error the engine discards the event immediately instead of
// re-enqueueing it, regardless of remaining attempts.
//
// Returns nil if err is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether any error in err's chain was marked with
// Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
