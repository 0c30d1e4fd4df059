// Package simkernel implements the three similarity kernels the ranker
// combines: semantic cosine, fuzzy Levenshtein-based string similarity,
// and keyword substring containment.
package simkernel

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/viterin/vek/vek32"
)

var lower = cases.Lower(language.Und)

// Cosine returns the inner product of a and b. Callers are expected to
// pass unit-norm vectors, in which case the result is cosine similarity
// in [-1, 1].
func Cosine(a, b []float32) float32 {
	return vek32.Dot(a, b)
}

// Fuzzy returns a Levenshtein-based similarity in [0, 1]: 1 minus the edit
// distance between the lowercased inputs, normalized by the longer
// string's length. Two empty strings are defined as maximally similar.
func Fuzzy(a, b string) float64 {
	a, b = lower.String(a), lower.String(b)
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	dist := levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1 - float64(dist)/float64(maxLen)
}

// Keyword returns the fraction of q's whitespace-separated words (after
// lowercasing, with empties dropped) that occur as a substring of t. A
// query with no non-empty words scores 0.
func Keyword(q, t string) float64 {
	t = lower.String(t)
	fields := strings.Fields(lower.String(q))
	if len(fields) == 0 {
		return 0
	}
	hits := 0
	for _, w := range fields {
		if strings.Contains(t, w) {
			hits++
		}
	}
	return float64(hits) / float64(len(fields))
}

// levenshtein computes the edit distance between two strings using the
// standard dynamic-programming matrix, operating byte-wise on
// already-lowercased input.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
