package hybridcat

import (
	"fmt"

	"github.com/arashi-labs/hybridcat/internal/store"
)

// SaveSQLite persists the current catalog's item rows (id, text,
// metadata, vector slot) to a SQLite database at path, as an alternate
// to the JSON snapshot for catalogs large enough that a single blob is
// inconvenient to manage on disk. It does not persist vectors; pair it
// with Save's JSON snapshot (which does) when ANN search must survive
// the round trip. This is a second serialization of engine state, not a
// write-through store; there is no incremental persistence path.
func (e *Engine) SaveSQLite(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}

	db, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("hybridcat: save sqlite: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Clear(); err != nil {
		return fmt.Errorf("hybridcat: save sqlite: %w", err)
	}
	for slot, r := range e.items {
		if err := db.Put(r.id, r.text, r.metadata, slot); err != nil {
			return fmt.Errorf("hybridcat: save sqlite: %w", err)
		}
	}
	return nil
}

// LoadSQLiteInto reads the items stored by SaveSQLite in the SQLite
// database at path and returns them ordered by their saved vector slot.
// It does not modify the engine's catalog and restores no vectors; the
// returned items reach the engine only through Add or Build.
func (e *Engine) LoadSQLiteInto(path string) ([]Item, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hybridcat: load sqlite: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.All()
	if err != nil {
		return nil, fmt.Errorf("hybridcat: load sqlite: %w", err)
	}

	items := make([]Item, len(rows))
	for i, r := range rows {
		items[i] = Item{ID: r.ID, Text: r.Text, Metadata: r.Metadata}
	}
	return items, nil
}
