// Package archive provides terminal-outcome storage for delivered and
// discarded events.
//
// The engine owns events only until they reach a terminal outcome. An
// archive store keeps a record of each outcome so operators can answer
// "what happened to event X" after the fact. The engine never consults
// the archive for control flow; it is purely observational.
package archive

import (
	"encoding/json"
	"errors"
	"time"
)

// Outcome classifies how an event left the engine.
type Outcome string

const (
	// OutcomeDelivered means every destination accepted the event.
	OutcomeDelivered Outcome = "delivered"

	// OutcomeDropped means a plugin asked for the event to be discarded.
	OutcomeDropped Outcome = "dropped"

	// OutcomeDiscarded means the engine gave up on the event, either
	// because its retry budget ran out or its failure was permanent.
	OutcomeDiscarded Outcome = "discarded"
)

// Entry records one event's terminal outcome.
type Entry struct {
	EventID    string          `json:"event_id"`
	EventName  string          `json:"event_name"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Outcome    Outcome         `json:"outcome"`
	Attempts   int             `json:"attempts"`
	Error      string          `json:"error,omitempty"`
	ArchivedAt time.Time       `json:"archived_at"`
}

// Store persists terminal outcomes. Implementations must be safe for
// concurrent use.
type Store interface {
	// Record appends an entry. A zero ArchivedAt is stamped with the
	// current time.
	Record(entry Entry) error

	// List returns all entries in record order.
	List() ([]Entry, error)

	// ListByOutcome returns entries with the given outcome in record order.
	ListByOutcome(outcome Outcome) ([]Entry, error)

	// Count returns the number of recorded entries.
	Count() (int, error)

	// Close releases any resources (connections, files).
	Close() error
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("archive store closed")
