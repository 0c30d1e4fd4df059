package rank

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestWeightsNormalizeSumsToOne(t *testing.T) {
	w := Weights{Semantic: 2, Fuzzy: 1, Keyword: 1}.normalize()
	total := w.Semantic + w.Fuzzy + w.Keyword
	if !approxEqual(total, 1, 1e-9) {
		t.Errorf("normalized weights sum to %v, want 1", total)
	}
	if !approxEqual(w.Semantic, 0.5, 1e-9) {
		t.Errorf("Semantic = %v, want 0.5", w.Semantic)
	}
}

func TestWeightsNormalizeAllZeroFallsBackToDefaults(t *testing.T) {
	w := Weights{}.normalize()
	if w != DefaultWeights() {
		t.Errorf("all-zero weights normalized to %+v, want defaults %+v", w, DefaultWeights())
	}
}

func TestScoreWithoutNormalizationIsConvexCombination(t *testing.T) {
	r := New(Weights{Semantic: 0.5, Fuzzy: 0.3, Keyword: 0.2}, false)
	scores := r.Score([]Candidate{{ID: 1, Semantic: 1, Fuzzy: 0, Keyword: 0}})
	want := 0.5
	if !approxEqual(scores[0], want, 1e-9) {
		t.Errorf("score = %v, want %v", scores[0], want)
	}
}

func TestScoreWithNormalizationScalesPerBatch(t *testing.T) {
	r := New(Weights{Semantic: 1, Fuzzy: 0, Keyword: 0}, true)
	scores := r.Score([]Candidate{
		{ID: 1, Semantic: 0},
		{ID: 2, Semantic: 5},
		{ID: 3, Semantic: 10},
	})
	if !approxEqual(scores[0], 0, 1e-9) {
		t.Errorf("scores[0] = %v, want 0", scores[0])
	}
	if !approxEqual(scores[1], 0.5, 1e-9) {
		t.Errorf("scores[1] = %v, want 0.5", scores[1])
	}
	if !approxEqual(scores[2], 1, 1e-9) {
		t.Errorf("scores[2] = %v, want 1", scores[2])
	}
}

func TestMinMaxNormalizeDegenerateBatch(t *testing.T) {
	out := minMaxNormalize([]float64{3, 3, 3})
	for _, v := range out {
		if v != 1 {
			t.Errorf("degenerate positive batch should map to 1, got %v", v)
		}
	}

	out = minMaxNormalize([]float64{0, 0, 0})
	for _, v := range out {
		if v != 0 {
			t.Errorf("degenerate zero batch should map to 0, got %v", v)
		}
	}

	out = minMaxNormalize([]float64{-1, -1})
	for _, v := range out {
		if v != 0 {
			t.Errorf("degenerate negative batch should map to 0, got %v", v)
		}
	}
}

func TestSubstringScorerMatchesSimkernel(t *testing.T) {
	s := SubstringScorer{}
	got := s.Score("phone charger", "USB-C phone charger cable")
	if got != 1 {
		t.Errorf("SubstringScorer.Score = %v, want 1", got)
	}
}

func TestBleveIndexScoreBatchEmptyQuery(t *testing.T) {
	idx, err := NewBleveIndex()
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer idx.Close()

	out, err := idx.ScoreBatch("", 10)
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty result for empty query, got %v", out)
	}
}

func TestHybridKeywordScorerFloorsAtSubstring(t *testing.T) {
	idx, err := NewBleveIndex()
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer idx.Close()

	if err := idx.Index("a", "a red leather wallet"); err != nil {
		t.Fatalf("Index: %v", err)
	}

	h := NewHybridKeywordScorer(idx)
	scores, err := h.ScoreAll("leather wallet", map[string]string{
		"a": "a red leather wallet",
		"b": "a blue cotton scarf",
	})
	if err != nil {
		t.Fatalf("ScoreAll: %v", err)
	}

	if scores["a"] < 1-1e-9 {
		t.Errorf("exact substring match should score at least the substring floor (1), got %v", scores["a"])
	}
	if scores["b"] != 0 {
		t.Errorf("non-matching item should score 0 when bleve also finds no hit, got %v", scores["b"])
	}
}
