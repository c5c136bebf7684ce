package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// SQLiteBackend persists full session snapshots as JSON rows in SQLite.
// modernc.org/sqlite is pure Go, so no CGO is required.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the database at path and
// ensures the sessions table exists.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Get loads a session record or returns ErrNotFound.
func (b *SQLiteBackend) Get(ctx context.Context, id string) (*State, error) {
	var record string
	err := b.db.QueryRowContext(ctx,
		`SELECT record FROM sessions WHERE id = ?`, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session %s: %w", id, err)
	}

	var state State
	if err := json.Unmarshal([]byte(record), &state); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &state, nil
}

// Save upserts the full snapshot for a session.
func (b *SQLiteBackend) Save(ctx context.Context, id string, state *State) error {
	record, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", id, err)
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO sessions (id, record, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		id, string(record), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving session %s: %w", id, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
