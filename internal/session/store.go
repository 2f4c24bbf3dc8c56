package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/manash/designgen/pkg/models"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    parent_id INTEGER,
    operation TEXT NOT NULL,
    design_id INTEGER NOT NULL,
    prompt TEXT NOT NULL,
    spec_json TEXT NOT NULL,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp);
`

// Keys in the kv table.
const (
	KeySavedDesigns = "savedDesigns"
	KeyTheme        = "theme"
	KeyHasVisited   = "hasVisited"
)

var ErrKeyNotFound = errors.New("key not found")

// Store is a small sqlite-backed key/value store plus a log of every design
// the workspace has shown.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the raw value for key, or ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now())
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// Entry is one design shown in the workspace, linked to the design it was
// derived from.
type Entry struct {
	ID        int64
	ParentID  int64
	Operation Operation
	Design    *models.Design
	Timestamp time.Time
}

type Operation string

const (
	OpGenerate Operation = "generate"
	OpIterate  Operation = "iterate"
	OpMaterial Operation = "material"
	OpLoad     Operation = "load"
)

func (s *Store) AddEntry(ctx context.Context, e *Entry) error {
	specJSON, err := encodeDesign(e.Design)
	if err != nil {
		return err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO history (parent_id, operation, design_id, prompt, spec_json, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		nullInt(e.ParentID), string(e.Operation), e.Design.ID, e.Design.Prompt, specJSON, e.Timestamp)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (s *Store) GetEntry(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, parent_id, operation, spec_json, timestamp FROM history WHERE id = ?`, id)
	return scanEntry(row)
}

// ListEntries returns the most recent entries first, at most limit of them
// (all when limit <= 0).
func (s *Store) ListEntries(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, operation, spec_json, timestamp
		 FROM history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) ClearHistory(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	e := &Entry{}
	var parentID sql.NullInt64
	var op, specJSON string
	if err := row.Scan(&e.ID, &parentID, &op, &specJSON, &e.Timestamp); err != nil {
		return nil, err
	}
	e.ParentID = parentID.Int64
	e.Operation = Operation(op)

	design, err := decodeDesign(specJSON)
	if err != nil {
		return nil, fmt.Errorf("history entry %d: %w", e.ID, err)
	}
	e.Design = design
	return e, nil
}

func nullInt(n int64) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}

func FormatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
