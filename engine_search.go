package hybridcat

import (
	"context"
	"sort"

	"github.com/arashi-labs/hybridcat/internal/quant"
	"github.com/arashi-labs/hybridcat/internal/rank"
	"github.com/arashi-labs/hybridcat/internal/simkernel"
)

// SearchOptions controls a single Search call. The zero value is
// deliberately the permissive default: DisableANN defaults to false
// (use HNSW when available), not the other way around.
type SearchOptions struct {
	TopK      int
	Threshold float64
	MinLength int
	Explain   bool
	Filter    Filter
	// DisableANN forces brute-force cosine scoring even when HNSW is
	// active and would otherwise be used.
	DisableANN bool
}

// DefaultSearchOptions returns the documented search defaults.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		TopK:      DefaultTopK,
		Threshold: DefaultThreshold,
		MinLength: DefaultMinLength,
	}
}

// ScoreExplain carries both the raw and (if normalization is enabled)
// batch-normalized component scores behind a result, when requested.
type ScoreExplain struct {
	RawSemantic  float64
	RawFuzzy     float64
	RawKeyword   float64
	NormSemantic float64
	NormFuzzy    float64
	NormKeyword  float64
}

// SearchResult is one ranked hit.
type SearchResult struct {
	Item    Item
	Score   float64
	Explain *ScoreExplain
}

// Search ranks the catalog against query under opts, following the
// engine's fixed seven-step control flow: min-length gate, query
// embedding, candidate selection (HNSW or brute force), metadata
// filter, per-candidate fuzzy/keyword scoring, hybrid ranking with
// threshold and topK, and optional score explanation.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.MinLength <= 0 {
		opts.MinLength = DefaultMinLength
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, errClosed
	}

	if len(query) < opts.MinLength {
		return nil, nil
	}

	qvec, err := e.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	slots, semantic, err := e.selectCandidatesLocked(qvec, opts)
	if err != nil {
		return nil, err
	}

	if opts.Filter != nil {
		kept := slots[:0]
		for _, slot := range slots {
			if opts.Filter.Keep(e.items[slot].metadata) {
				kept = append(kept, slot)
			}
		}
		slots = kept
	}

	texts := make(map[string]string, len(slots))
	for _, slot := range slots {
		texts[e.items[slot].id] = e.items[slot].text
	}
	kwScores, err := rank.NewHybridKeywordScorer(e.keywordIdx).ScoreAll(query, texts)
	if err != nil {
		return nil, err
	}

	candidates := make([]rank.Candidate, len(slots))
	for i, slot := range slots {
		text := e.items[slot].text
		candidates[i] = rank.Candidate{
			ID:       slot,
			Semantic: semantic[slot],
			Fuzzy:    simkernel.Fuzzy(query, text),
			Keyword:  kwScores[e.items[slot].id],
		}
	}

	scores, explains := e.ranker.ScoreExplain(candidates)

	results := make([]SearchResult, 0, len(candidates))
	for i, c := range candidates {
		if scores[i] < opts.Threshold {
			continue
		}
		r := e.items[c.ID]
		res := SearchResult{
			Item:  Item{ID: r.id, Text: r.text, Metadata: r.metadata},
			Score: scores[i],
		}
		if opts.Explain {
			res.Explain = &ScoreExplain{
				RawSemantic:  c.Semantic,
				RawFuzzy:     c.Fuzzy,
				RawKeyword:   c.Keyword,
				NormSemantic: explains[i].Semantic,
				NormFuzzy:    explains[i].Fuzzy,
				NormKeyword:  explains[i].Keyword,
			}
		}
		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}

	return results, nil
}

// selectCandidatesLocked returns the candidate slot ids and a
// slot-indexed map of their semantic scores, using HNSW (2·topK
// candidates, distance converted to similarity) when active and
// permitted, else brute-force cosine over every item.
func (e *Engine) selectCandidatesLocked(qvec []float32, opts SearchOptions) ([]int, map[int]float64, error) {
	semantic := make(map[int]float64, len(e.items))

	if e.hnsw != nil && !opts.DisableANN {
		hits, err := e.hnsw.Search(qvec, 2*opts.TopK)
		if err != nil {
			return nil, nil, err
		}
		slots := make([]int, 0, len(hits))
		for _, h := range hits {
			slots = append(slots, h.ID)
			semantic[h.ID] = float64(1 - h.Distance)
		}
		return slots, semantic, nil
	}

	slots := make([]int, 0, len(e.items))
	for slot, r := range e.items {
		vec, err := quant.Decode(r.vector)
		if err != nil {
			continue
		}
		slots = append(slots, slot)
		semantic[slot] = float64(simkernel.Cosine(qvec, vec))
	}
	return slots, semantic, nil
}
