package rank

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/arashi-labs/hybridcat/internal/simkernel"
)

// KeywordScorer scores a single (query, text) pair for keyword
// relevance.
type KeywordScorer interface {
	Score(query, text string) float64
}

// SubstringScorer is the plain substring-containment scorer: the
// fraction of query words that appear as a substring of text.
type SubstringScorer struct{}

func (SubstringScorer) Score(query, text string) float64 {
	return simkernel.Keyword(query, text)
}

type itemDocument struct {
	Text string `json:"text"`
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = "en"

	itemMapping := bleve.NewDocumentMapping()
	itemMapping.AddFieldMappingsAt("text", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = itemMapping
	indexMapping.DefaultAnalyzer = "en"
	return indexMapping
}

// BleveIndex is an in-memory, process-local full-text index over item
// text, used to enrich the deterministic substring score with a
// BM25-derived ranked signal.
type BleveIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

// NewBleveIndex creates an empty in-memory index.
func NewBleveIndex() (*BleveIndex, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("rank: create in-memory bleve index: %w", err)
	}
	return &BleveIndex{index: idx}, nil
}

// Index adds or replaces the document for id.
func (b *BleveIndex) Index(id string, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.index.Index(id, itemDocument{Text: text}); err != nil {
		return fmt.Errorf("rank: index %q: %w", id, err)
	}
	return nil
}

// Delete removes the document for id, if present.
func (b *BleveIndex) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.index.Delete(id); err != nil {
		return fmt.Errorf("rank: delete %q: %w", id, err)
	}
	return nil
}

// Close releases the index's in-memory resources.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}

// ScoreBatch runs query once and returns a per-id score in (0,1]: each
// hit's score divided by the highest hit score. ids not present among
// the hits are absent from the result (callers treat that as zero).
func (b *BleveIndex) ScoreBatch(query string, limit int) (map[string]float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if query == "" {
		return map[string]float64{}, nil
	}
	if limit <= 0 {
		limit = 100
	}

	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit

	result, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("rank: bleve search: %w", err)
	}
	if len(result.Hits) == 0 {
		return map[string]float64{}, nil
	}

	maxScore := result.Hits[0].Score
	for _, h := range result.Hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}

	out := make(map[string]float64, len(result.Hits))
	for _, h := range result.Hits {
		if maxScore > 0 {
			out[h.ID] = h.Score / maxScore
		}
	}
	return out, nil
}

// HybridKeywordScorer combines a single batched bleve search with the
// per-candidate substring floor, so enrichment can only raise a
// candidate's keyword score above what plain substring containment
// would give it, never lower it.
type HybridKeywordScorer struct {
	index *BleveIndex
}

// NewHybridKeywordScorer wraps an existing BleveIndex.
func NewHybridKeywordScorer(index *BleveIndex) *HybridKeywordScorer {
	return &HybridKeywordScorer{index: index}
}

// ScoreAll scores every (id, text) pair in items against query.
func (h *HybridKeywordScorer) ScoreAll(query string, items map[string]string) (map[string]float64, error) {
	enriched, err := h.index.ScoreBatch(query, len(items))
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(items))
	for id, text := range items {
		floor := simkernel.Keyword(query, text)
		if enriched[id] > floor {
			out[id] = enriched[id]
		} else {
			out[id] = floor
		}
	}
	return out, nil
}
