// Package rank implements the hybrid scorer that linearly combines
// semantic, fuzzy-string, and keyword signals under optional per-batch
// min-max normalization.
package rank

// Weights are the user's policy over the three score components. They
// need not sum to 1; normalize() handles that.
type Weights struct {
	Semantic float64
	Fuzzy    float64
	Keyword  float64
}

// DefaultWeights matches the engine façade's default (0.7, 0.15, 0.15).
func DefaultWeights() Weights {
	return Weights{Semantic: 0.7, Fuzzy: 0.15, Keyword: 0.15}
}

func (w Weights) normalize() Weights {
	total := w.Semantic + w.Fuzzy + w.Keyword
	if total <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Semantic: w.Semantic / total,
		Fuzzy:    w.Fuzzy / total,
		Keyword:  w.Keyword / total,
	}
}

// Candidate holds the raw (semantic, fuzzy, keyword) triple for one item
// before weighting and optional normalization.
type Candidate struct {
	ID       int
	Semantic float64
	Fuzzy    float64
	Keyword  float64
}

// Ranker combines candidate triples into a single ranking score.
type Ranker struct {
	weights   Weights
	normalize bool
}

// New creates a Ranker. When normalize is true, each of the three
// components is independently min-max scaled to [0,1] across the
// candidate batch before weighting.
func New(weights Weights, normalize bool) *Ranker {
	return &Ranker{weights: weights, normalize: normalize}
}

// Score returns the final score for each candidate, in the same order
// as the input slice.
func (r *Ranker) Score(candidates []Candidate) []float64 {
	scores, _ := r.ScoreExplain(candidates)
	return scores
}

// Explain carries the per-component values a Candidate contributed,
// after batch normalization (if enabled) but before weighting.
type Explain struct {
	Semantic float64
	Fuzzy    float64
	Keyword  float64
}

// ScoreExplain returns both the final scores and the per-candidate
// normalized components, in the same order as the input slice.
func (r *Ranker) ScoreExplain(candidates []Candidate) ([]float64, []Explain) {
	w := r.weights.normalize()

	sem := make([]float64, len(candidates))
	fuz := make([]float64, len(candidates))
	kw := make([]float64, len(candidates))
	for i, c := range candidates {
		sem[i] = c.Semantic
		fuz[i] = c.Fuzzy
		kw[i] = c.Keyword
	}

	if r.normalize {
		sem = minMaxNormalize(sem)
		fuz = minMaxNormalize(fuz)
		kw = minMaxNormalize(kw)
	}

	scores := make([]float64, len(candidates))
	explains := make([]Explain, len(candidates))
	for i := range candidates {
		scores[i] = w.Semantic*sem[i] + w.Fuzzy*fuz[i] + w.Keyword*kw[i]
		explains[i] = Explain{Semantic: sem[i], Fuzzy: fuz[i], Keyword: kw[i]}
	}
	return scores, explains
}

// minMaxNormalize scales values to [0,1] using the batch's own min and
// max. When max <= min (a degenerate, near-constant batch), a positive
// value maps to 1 and a non-positive value maps to 0.
func minMaxNormalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if max <= min {
		for i, v := range values {
			if v > 0 {
				out[i] = 1
			}
		}
		return out
	}

	span := max - min
	for i, v := range values {
		out[i] = (v - min) / span
	}
	return out
}
