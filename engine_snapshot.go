package hybridcat

import (
	"fmt"
	"time"

	"github.com/arashi-labs/hybridcat/internal/quant"
	"github.com/arashi-labs/hybridcat/internal/rank"
)

// SnapshotVersion identifies the JSON snapshot schema this Engine reads
// and writes. Load rejects any other value.
const SnapshotVersion = "1"

// Snapshot is the engine's save/load wire format. Items and Vectors are
// parallel arrays in the same order.
type Snapshot struct {
	Version      string         `json:"version"`
	Model        string         `json:"model"`
	Items        []SnapshotItem `json:"items"`
	Vectors      []string       `json:"vectors"`
	CreatedAt    string         `json:"createdAt"`
	TextPaths    []string       `json:"textPaths,omitempty"`
	Quantization quant.Encoding `json:"quantization,omitempty"`
}

// SnapshotItem is one catalog entry as recorded in a Snapshot.
type SnapshotItem struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Metadata any    `json:"metadata,omitempty"`
}

// Save emits a snapshot of the current catalog: every item's id, text,
// and metadata, alongside its base64-encoded quantized vector in the
// same order. Save does not touch the embedder.
func (e *Engine) Save() (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return Snapshot{}, errClosed
	}

	items := make([]SnapshotItem, len(e.items))
	vectors := make([]string, len(e.items))
	for i, r := range e.items {
		items[i] = SnapshotItem{ID: r.id, Text: r.text, Metadata: r.metadata}
		enc, err := quant.Marshal(r.vector)
		if err != nil {
			return Snapshot{}, fmt.Errorf("hybridcat: save: marshal vector for %q: %w", r.id, err)
		}
		vectors[i] = enc
	}

	return Snapshot{
		Version:      SnapshotVersion,
		Model:        e.config.Model,
		Items:        items,
		Vectors:      vectors,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		Quantization: e.config.Quantization,
	}, nil
}

// Load replaces the catalog with snap's contents: items and their
// already-embedded vectors are restored directly, without calling the
// embedder, and the HNSW index is rebuilt if warranted. Load never
// mutates engine state if it returns an error.
func (e *Engine) Load(snap Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrInvalidSnapshot, snap.Version)
	}
	if len(snap.Items) != len(snap.Vectors) {
		return fmt.Errorf("%w: %d items but %d vectors", ErrInvalidSnapshot, len(snap.Items), len(snap.Vectors))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}

	dim := e.config.Dim
	quantization := snap.Quantization
	if quantization == "" {
		quantization = quant.Float32
	}

	items := make([]itemRecord, len(snap.Items))
	index := make(map[string]int, len(snap.Items))
	for i, it := range snap.Items {
		sv, err := quant.Unmarshal(snap.Vectors[i], dim)
		if err != nil {
			return fmt.Errorf("%w: item %q: %v", ErrInvalidSnapshot, it.ID, err)
		}
		items[i] = itemRecord{id: it.ID, text: it.Text, metadata: it.Metadata, vector: sv}
		index[it.ID] = i
	}

	fresh, err := rank.NewBleveIndex()
	if err != nil {
		return fmt.Errorf("hybridcat: load: create keyword index: %w", err)
	}
	for _, it := range snap.Items {
		if err := fresh.Index(it.ID, it.Text); err != nil {
			_ = fresh.Close()
			return fmt.Errorf("hybridcat: load: keyword index %q: %w", it.ID, err)
		}
	}

	_ = e.keywordIdx.Close()
	e.keywordIdx = fresh
	e.items = items
	e.index = index
	e.config.Model = snap.Model
	e.config.Quantization = quantization
	e.hnsw = nil
	e.cache.Clear()
	e.maybeEnableHNSWLocked()
	return nil
}
