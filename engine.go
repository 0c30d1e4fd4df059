package hybridcat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/arashi-labs/hybridcat/internal/cache"
	"github.com/arashi-labs/hybridcat/internal/embedding"
	"github.com/arashi-labs/hybridcat/internal/hnsw"
	"github.com/arashi-labs/hybridcat/internal/quant"
	"github.com/arashi-labs/hybridcat/internal/rank"
)

// Defaults, per the engine's public contract.
const (
	DefaultTopK         = 5
	DefaultThreshold    = 0
	DefaultMinLength    = 1
	DefaultAnnThreshold = 1000
	DefaultCacheSize    = 10000
)

// errClosed is returned by Build, Add, Remove, Search, Save, Load, and
// SaveSQLite on an Engine after Close.
var errClosed = errors.New("hybridcat: engine is closed")

// Config configures a new Engine.
type Config struct {
	// Model identifies the embedding model, used for cache keying and
	// recorded in snapshots.
	Model string
	// Dim is the embedding dimension. Zero means "ask the provider".
	Dim int
	// Quantization selects the vector encoding. Zero value defaults to
	// quant.Float32.
	Quantization quant.Encoding
	// AnnThreshold is the item count at which HNSW auto-enables. Zero
	// means DefaultAnnThreshold.
	AnnThreshold int
	// RequestHNSW forces HNSW on regardless of item count.
	RequestHNSW bool
	// HNSW holds the graph's construction/search parameters.
	HNSW hnsw.Config
	// CacheSize is the embedding LRU cache capacity. Zero means
	// DefaultCacheSize.
	CacheSize int
	// Weights is the initial ranker policy.
	Weights rank.Weights
}

// DefaultConfig returns the engine's documented defaults.
func DefaultConfig() Config {
	return Config{
		Quantization: quant.Float32,
		AnnThreshold: DefaultAnnThreshold,
		HNSW:         hnsw.DefaultConfig(),
		CacheSize:    DefaultCacheSize,
		Weights:      rank.DefaultWeights(),
	}
}

// itemRecord is the engine's internal row: an item plus its encoded
// vector, addressed by slot (its position in items and its HNSW node id).
type itemRecord struct {
	id       string
	text     string
	metadata any
	vector   quant.StoredVector
}

// Engine is the façade composing the vector store, HNSW index,
// embedding cache, and hybrid ranker. It is not safe for concurrent use
// without external synchronization; the concurrency model is single
// cooperative-task.
type Engine struct {
	mu       sync.Mutex
	provider embedding.Provider
	config   Config

	items []itemRecord
	index map[string]int // id -> slot

	hnsw       *hnsw.Graph // nil until requested or annThreshold crossed
	cache      *cache.Cache
	ranker     *rank.Ranker
	keywordIdx *rank.BleveIndex

	closed bool
}

// New creates an empty Engine backed by provider.
func New(provider embedding.Provider, config Config) (*Engine, error) {
	if config.Quantization == "" {
		config.Quantization = quant.Float32
	}
	if config.AnnThreshold <= 0 {
		config.AnnThreshold = DefaultAnnThreshold
	}
	if (config.HNSW == hnsw.Config{}) {
		config.HNSW = hnsw.DefaultConfig()
	}
	cacheSize := config.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if config.Dim <= 0 && provider != nil {
		config.Dim = provider.Dimension()
	}

	kwIdx, err := rank.NewBleveIndex()
	if err != nil {
		return nil, fmt.Errorf("hybridcat: create keyword index: %w", err)
	}

	weights := config.Weights
	if weights == (rank.Weights{}) {
		weights = rank.DefaultWeights()
	}

	return &Engine{
		provider:   provider,
		config:     config,
		index:      make(map[string]int),
		cache:      cache.New(cacheSize),
		ranker:     rank.New(weights, true),
		keywordIdx: kwIdx,
	}, nil
}

// Close releases the engine's in-memory keyword index. The engine must
// not be used afterward.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.keywordIdx.Close()
}

// Build replaces the entire catalog with items, embedding each (via the
// cache) and constructing the vector store and, if warranted, the HNSW
// index.
func (e *Engine) Build(ctx context.Context, items []Item) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}

	fresh, err := rank.NewBleveIndex()
	if err != nil {
		return fmt.Errorf("hybridcat: create keyword index: %w", err)
	}
	_ = e.keywordIdx.Close()
	e.keywordIdx = fresh

	e.items = nil
	e.index = make(map[string]int, len(items))
	e.hnsw = nil
	e.cache.Clear()

	for _, it := range items {
		if err := e.addLocked(ctx, it); err != nil {
			return err
		}
	}
	e.maybeEnableHNSWLocked()
	return nil
}

// Add inserts or whole-item-replaces each item. Replacing an existing
// id keeps it at the same internal slot and HNSW node id.
func (e *Engine) Add(ctx context.Context, items []Item) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}

	for _, it := range items {
		if err := e.addLocked(ctx, it); err != nil {
			return err
		}
	}
	e.maybeEnableHNSWLocked()
	return nil
}

func (e *Engine) addLocked(ctx context.Context, it Item) error {
	vec, err := e.embed(ctx, it.Text)
	if err != nil {
		return err
	}

	sv, err := quant.Encode(vec, e.config.Quantization)
	if err != nil {
		return fmt.Errorf("hybridcat: encode vector for %q: %w", it.ID, err)
	}

	if slot, exists := e.index[it.ID]; exists {
		e.items[slot] = itemRecord{id: it.ID, text: it.Text, metadata: it.Metadata, vector: sv}
		if e.hnsw != nil {
			e.hnsw.Remove(slot)
			if err := e.hnsw.Insert(slot, vec); err != nil {
				return fmt.Errorf("hybridcat: hnsw insert for %q: %w", it.ID, err)
			}
		}
	} else {
		slot = len(e.items)
		e.items = append(e.items, itemRecord{id: it.ID, text: it.Text, metadata: it.Metadata, vector: sv})
		e.index[it.ID] = slot
		if e.hnsw != nil {
			if err := e.hnsw.Insert(slot, vec); err != nil {
				return fmt.Errorf("hybridcat: hnsw insert for %q: %w", it.ID, err)
			}
		}
	}

	if err := e.keywordIdx.Index(it.ID, it.Text); err != nil {
		return fmt.Errorf("hybridcat: keyword index for %q: %w", it.ID, err)
	}
	return nil
}

// Remove deletes the items with the given ids, compacting the item and
// vector tables and rebuilding the HNSW graph from scratch if one was
// active. Removing a missing id is a no-op.
func (e *Engine) Remove(ids []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}

	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}

	kept := e.items[:0]
	newIndex := make(map[string]int, len(e.items))
	for _, r := range e.items {
		if removeSet[r.id] {
			_ = e.keywordIdx.Delete(r.id)
			continue
		}
		newIndex[r.id] = len(kept)
		kept = append(kept, r)
	}
	e.items = kept
	e.index = newIndex

	if e.hnsw != nil {
		e.rebuildHNSWLocked()
	}
	return nil
}

// Get returns the current state of item id.
func (e *Engine) Get(id string) (Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	slot, ok := e.index[id]
	if !ok {
		return Item{}, false
	}
	r := e.items[slot]
	return Item{ID: r.id, Text: r.text, Metadata: r.metadata}, true
}

// GetAll returns every item currently in the catalog, in internal slot
// order.
func (e *Engine) GetAll() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Item, len(e.items))
	for i, r := range e.items {
		out[i] = Item{ID: r.id, Text: r.text, Metadata: r.metadata}
	}
	return out
}

// Size returns the number of items in the catalog.
func (e *Engine) Size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.items)
}

// SetWeights replaces the ranker's weight policy.
func (e *Engine) SetWeights(w rank.Weights) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.Weights = w
	e.ranker = rank.New(w, true)
}

// IndexInfo reports the engine's current index state.
type IndexInfo struct {
	Dimension  int
	Size       int
	HNSWActive bool
	HNSW       hnsw.Config
	Cache      cache.Stats
}

// GetIndexInfo reports the engine's HNSW parameters and cache stats.
func (e *Engine) GetIndexInfo() IndexInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return IndexInfo{
		Dimension:  e.config.Dim,
		Size:       len(e.items),
		HNSWActive: e.hnsw != nil,
		HNSW:       e.config.HNSW,
		Cache:      e.cache.Stats(),
	}
}

func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.KeyFor(text, e.config.Model)
	if v, ok := e.cache.Get(key); ok {
		return v, nil
	}

	v, err := e.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("hybridcat: embed: %w", err)
	}
	if len(v) != e.config.Dim {
		return nil, fmt.Errorf("%w: embedding has %d dimensions, engine expects %d", ErrDimensionMismatch, len(v), e.config.Dim)
	}

	v = l2Normalize(v)
	e.cache.Set(key, v)
	return v, nil
}

// maybeEnableHNSWLocked turns on HNSW once requested or once the item
// count crosses AnnThreshold, building it from the current vector table.
func (e *Engine) maybeEnableHNSWLocked() {
	if e.hnsw != nil {
		return
	}
	if !e.config.RequestHNSW && len(e.items) < e.config.AnnThreshold {
		return
	}
	e.rebuildHNSWLocked()
}

// l2Normalize scales v to unit length in place (returning v), matching
// the invariant quant and hnsw both assume: ‖v‖₂ = 1 ± ε. A zero vector
// is returned unchanged rather than dividing by zero.
func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
	return v
}

func (e *Engine) rebuildHNSWLocked() {
	g := hnsw.New(e.config.Dim, e.config.HNSW)
	for slot, r := range e.items {
		vec, err := quant.Decode(r.vector)
		if err != nil {
			continue
		}
		_ = g.Insert(slot, vec)
	}
	e.hnsw = g
}
