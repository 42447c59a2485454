// Package requestlog persists a bounded history of recent gateway requests
// (method, resolved model, status, duration, error) to a local SQLite
// database, so a restarted server doesn't lose the activity the TUI/CLI show
// under `gatewayd status`.
package requestlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/codefionn/gatewayd/internal/logger"
)

// Entry is one recorded request.
type Entry struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Model      string    `json:"model,omitempty"`
	Status     int       `json:"status"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// Store is a ring-buffer-bounded SQLite-backed request log.
type Store struct {
	db         *sql.DB
	maxEntries int
	log        *logger.Logger
}

// New opens (creating if needed) the SQLite database at path and ensures its
// schema exists. maxEntries bounds how many rows Record retains; older rows
// are trimmed after each insert.
func New(path string, maxEntries int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("requestlog: create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("requestlog: open database: %w", err)
	}

	s := &Store{db: db, maxEntries: maxEntries, log: logger.Global().WithPrefix("requestlog")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		model TEXT,
		status INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_requests_timestamp ON requests(timestamp DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("requestlog: create schema: %w", err)
	}
	return nil
}

// Record inserts e and trims the table back down to maxEntries rows.
func (s *Store) Record(e Entry) {
	_, err := s.db.Exec(`
		INSERT INTO requests (timestamp, method, path, model, status, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Timestamp, e.Method, e.Path, e.Model, e.Status, e.DurationMS, e.Error)
	if err != nil {
		s.log.Warn("record request: %v", err)
		return
	}
	if err := s.trim(); err != nil {
		s.log.Warn("trim request log: %v", err)
	}
}

func (s *Store) trim() error {
	_, err := s.db.Exec(`
		DELETE FROM requests WHERE id NOT IN (
			SELECT id FROM requests ORDER BY id DESC LIMIT ?
		)
	`, s.maxEntries)
	return err
}

// Recent returns up to limit of the most recently recorded entries, newest
// first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, method, path, model, status, duration_ms, error
		FROM requests ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("requestlog: query recent: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var model, errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Method, &e.Path, &model, &e.Status, &e.DurationMS, &errMsg); err != nil {
			return nil, fmt.Errorf("requestlog: scan: %w", err)
		}
		e.Model = model.String
		e.Error = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
