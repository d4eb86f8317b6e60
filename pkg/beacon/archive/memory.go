package archive

import (
	"sync"
	"time"
)

// MemoryStore is an in-memory archive for testing and short-lived
// processes. Entries are lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	closed  bool
}

// NewMemoryStore creates an empty in-memory archive.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record implements Store.
func (m *MemoryStore) Record(entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if entry.ArchivedAt.IsZero() {
		entry.ArchivedAt = time.Now().UTC()
	}

	// Copy the payload to avoid retaining the caller's slice.
	if entry.Payload != nil {
		payload := make([]byte, len(entry.Payload))
		copy(payload, entry.Payload)
		entry.Payload = payload
	}

	m.entries = append(m.entries, entry)
	return nil
}

// List implements Store.
func (m *MemoryStore) List() ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}

// ListByOutcome implements Store.
func (m *MemoryStore) ListByOutcome(outcome Outcome) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	var out []Entry
	for _, e := range m.entries {
		if e.Outcome == outcome {
			out = append(out, e)
		}
	}
	return out, nil
}

// Count implements Store.
func (m *MemoryStore) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStoreClosed
	}

	return len(m.entries), nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.entries = nil
	return nil
}
