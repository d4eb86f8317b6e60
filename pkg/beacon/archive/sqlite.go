package archive

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists archive entries to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a SQLite-backed archive.
// The path should be a file path (e.g., "./archive.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS archive (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL,
			event_name TEXT NOT NULL,
			payload BLOB,
			outcome TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			archived_at TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_archive_outcome
		ON archive(outcome)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Record implements Store.
func (s *SQLiteStore) Record(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if entry.ArchivedAt.IsZero() {
		entry.ArchivedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO archive (event_id, event_name, payload, outcome, attempts, error, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.EventID, entry.EventName, []byte(entry.Payload), string(entry.Outcome),
		entry.Attempts, entry.Error, entry.ArchivedAt.UTC().Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("record archive entry: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List() ([]Entry, error) {
	return s.query(`
		SELECT event_id, event_name, payload, outcome, attempts, error, archived_at
		FROM archive
		ORDER BY id
	`)
}

// ListByOutcome implements Store.
func (s *SQLiteStore) ListByOutcome(outcome Outcome) ([]Entry, error) {
	return s.query(`
		SELECT event_id, event_name, payload, outcome, attempts, error, archived_at
		FROM archive
		WHERE outcome = ?
		ORDER BY id
	`, string(outcome))
}

func (s *SQLiteStore) query(q string, args ...any) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list archive entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var payload []byte
		var outcome, archivedAt string
		if err := rows.Scan(&e.EventID, &e.EventName, &payload, &outcome, &e.Attempts, &e.Error, &archivedAt); err != nil {
			return nil, fmt.Errorf("scan archive entry: %w", err)
		}
		e.Payload = payload
		e.Outcome = Outcome(outcome)
		e.ArchivedAt, _ = time.Parse(time.RFC3339Nano, archivedAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive entries: %w", err)
	}

	return entries, nil
}

// Count implements Store.
func (s *SQLiteStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM archive`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count archive entries: %w", err)
	}
	return count, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
