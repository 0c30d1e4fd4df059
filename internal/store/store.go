// Package store provides an optional SQLite-backed persistence backend
// for the catalog, as an alternative to the engine's default in-memory
// JSON snapshot. It persists item text, arbitrary metadata, and the
// item's slot in the vector table, one row per item.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Row is one persisted item: its text, its decoded metadata, and its
// slot in the engine's vector table.
type Row struct {
	ID        string
	Text      string
	Metadata  any
	VectorIdx int
}

// Store is a SQLite-backed metadata table keyed by item id.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens a SQLite store at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	schema := `
		CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			metadata_json TEXT NOT NULL,
			vector_idx INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_items_vector_idx ON items(vector_idx);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// Put inserts or replaces the row for id.
func (s *Store) Put(id, text string, metadata any, vectorIdx int) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("store: marshal metadata for %q: %w", id, err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO items (id, text, metadata_json, vector_idx) VALUES (?, ?, ?, ?)`,
		id, text, string(metaJSON), vectorIdx,
	)
	if err != nil {
		return fmt.Errorf("store: put %q: %w", id, err)
	}
	return nil
}

// Get retrieves the row for id.
func (s *Store) Get(id string) (Row, bool, error) {
	row := s.db.QueryRow(`SELECT id, text, metadata_json, vector_idx FROM items WHERE id = ?`, id)
	r, err := scanRow(row)
	if err == sql.ErrNoRows {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, fmt.Errorf("store: get %q: %w", id, err)
	}
	return r, true, nil
}

// Delete removes the row for id. Deleting a nonexistent id is a no-op.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", id, err)
	}
	return nil
}

// All returns every row, ordered by vector_idx (the engine's slot
// order).
func (s *Store) All() ([]Row, error) {
	rows, err := s.db.Query(`SELECT id, text, metadata_json, vector_idx FROM items ORDER BY vector_idx`)
	if err != nil {
		return nil, fmt.Errorf("store: list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		r, err := scanRowsRow(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan item: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the total number of persisted items.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Clear removes every row.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM items`); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row *sql.Row) (Row, error) {
	return scanGeneric(row)
}

func scanRowsRow(rows *sql.Rows) (Row, error) {
	return scanGeneric(rows)
}

func scanGeneric(s rowScanner) (Row, error) {
	var r Row
	var metaJSON string
	if err := s.Scan(&r.ID, &r.Text, &metaJSON, &r.VectorIdx); err != nil {
		return Row{}, err
	}
	if err := json.Unmarshal([]byte(metaJSON), &r.Metadata); err != nil {
		return Row{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return r, nil
}
