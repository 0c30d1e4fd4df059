package hnsw

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/viterin/vek/vek32"
)

func unitVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	var norm float64
	for i := range v {
		x := rng.Float64()*2 - 1
		v[i] = float32(x)
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func TestInsertFirstNodeBecomesEntryPoint(t *testing.T) {
	g := NewWithSeed(4, DefaultConfig(), 1)
	v := []float32{1, 0, 0, 0}
	if err := g.Insert(1, v); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !g.hasEntry || g.entryPoint != 1 {
		t.Fatalf("entry point not set to first node: hasEntry=%v entry=%d", g.hasEntry, g.entryPoint)
	}
	if g.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", g.Len())
	}
}

func TestInsertDimensionMismatch(t *testing.T) {
	g := NewWithSeed(4, DefaultConfig(), 1)
	if err := g.Insert(1, []float32{1, 2, 3}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestSearchEmptyGraphReturnsEmpty(t *testing.T) {
	g := NewWithSeed(4, DefaultConfig(), 1)
	results, err := g.Search([]float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSearchFindsExactMatch(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	g := NewWithSeed(16, DefaultConfig(), 7)

	for i := 0; i < 50; i++ {
		if err := g.Insert(i, unitVector(rng, 16)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	target := unitVector(rng, 16)
	if err := g.Insert(999, target); err != nil {
		t.Fatalf("Insert(target): %v", err)
	}

	results, err := g.Search(target, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != 999 {
		t.Errorf("expected exact match id 999 first, got %+v", results)
	}
}

func TestRemoveNonexistentIsNoop(t *testing.T) {
	g := NewWithSeed(4, DefaultConfig(), 1)
	if g.Remove(42) {
		t.Error("Remove of nonexistent id should return false")
	}
}

func TestRemoveErasesNodeAndReciprocalEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := NewWithSeed(8, Config{M: 4, EfConstruction: 20, EfSearch: 10}, 3)

	for i := 0; i < 20; i++ {
		g.Insert(i, unitVector(rng, 8))
	}

	if !g.Remove(5) {
		t.Fatal("Remove(5) should succeed")
	}
	if g.Contains(5) {
		t.Error("node 5 still present after Remove")
	}
	for id, n := range g.nodes {
		for l, adj := range n.neighbors {
			for _, nb := range adj {
				if nb == 5 {
					t.Errorf("node %d level %d still references removed node 5", id, l)
				}
			}
		}
	}
}

func TestRemoveEntryPointReassigns(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	g := NewWithSeed(8, Config{M: 4, EfConstruction: 20, EfSearch: 10}, 9)
	for i := 0; i < 30; i++ {
		g.Insert(i, unitVector(rng, 8))
	}

	entry := g.entryPoint
	if !g.Remove(entry) {
		t.Fatal("Remove(entry) should succeed")
	}
	if !g.hasEntry {
		t.Fatal("entry point should be reassigned, not cleared, while nodes remain")
	}
	if g.entryPoint == entry {
		t.Error("entry point did not change after removal")
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		t.Error("reassigned entry point does not reference a live node")
	}
}

func TestRemoveLastNodeClearsEntryPoint(t *testing.T) {
	g := NewWithSeed(4, DefaultConfig(), 1)
	g.Insert(1, []float32{1, 0, 0, 0})
	g.Remove(1)
	if g.hasEntry {
		t.Error("entry point should be cleared once the graph is empty")
	}
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
}

func TestNeighborSetsNeverExceedM(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	m := 8
	g := NewWithSeed(12, Config{M: m, EfConstruction: 40, EfSearch: 20}, 11)
	for i := 0; i < 200; i++ {
		g.Insert(i, unitVector(rng, 12))
	}
	for id, n := range g.nodes {
		for l, adj := range n.neighbors {
			if len(adj) > m {
				t.Errorf("node %d level %d has %d neighbors, want <= %d", id, l, len(adj), m)
			}
		}
	}
}

func TestEdgesAreReciprocal(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	g := NewWithSeed(12, Config{M: 6, EfConstruction: 30, EfSearch: 15}, 21)
	for i := 0; i < 150; i++ {
		g.Insert(i, unitVector(rng, 12))
	}
	for id, n := range g.nodes {
		for l, adj := range n.neighbors {
			for _, nbID := range adj {
				nb := g.nodes[nbID]
				if l >= len(nb.neighbors) {
					t.Errorf("node %d has edge to %d at level %d, but %d has no such level", id, nbID, l, nbID)
					continue
				}
				found := false
				for _, back := range nb.neighbors[l] {
					if back == id {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("edge %d->%d at level %d is not reciprocated", id, nbID, l)
				}
			}
		}
	}
}

func TestSnapshotLoadRoundTripPreservesSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	g := NewWithSeed(16, DefaultConfig(), 5)
	vectors := make(map[int][]float32)
	for i := 0; i < 80; i++ {
		v := unitVector(rng, 16)
		vectors[i] = v
		g.Insert(i, v)
	}

	snap := g.Snapshot()
	loaded, err := Load(snap)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	query := vectors[10]
	want, err := g.Search(query, 5)
	if err != nil {
		t.Fatalf("Search original: %v", err)
	}
	got, err := loaded.Search(query, 5)
	if err != nil {
		t.Fatalf("Search loaded: %v", err)
	}

	if len(want) != len(got) {
		t.Fatalf("result count differs: %d vs %d", len(want), len(got))
	}
	for i := range want {
		if want[i].ID != got[i].ID {
			t.Errorf("result[%d] id differs: %d vs %d", i, want[i].ID, got[i].ID)
		}
		if math.Abs(float64(want[i].Distance-got[i].Distance)) > 1e-5 {
			t.Errorf("result[%d] distance differs: %v vs %v", i, want[i].Distance, got[i].Distance)
		}
	}
}

// bruteForceTopK returns the true k nearest ids to query by cosine distance.
func bruteForceTopK(vectors map[int][]float32, query []float32, k int) []int {
	type scored struct {
		id int
		d  float32
	}
	all := make([]scored, 0, len(vectors))
	for id, v := range vectors {
		all = append(all, scored{id, 1 - vek32.Dot(query, v)})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].d < all[j].d })
	if len(all) > k {
		all = all[:k]
	}
	out := make([]int, len(all))
	for i, s := range all {
		out[i] = s.id
	}
	return out
}

func TestApproximateRecallAgainstBruteForce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large recall test in -short mode")
	}

	const (
		n       = 10000
		dim     = 32
		queries = 100
		topK    = 10
	)

	rng := rand.New(rand.NewSource(1234))
	vectors := make(map[int][]float32, n)
	g := NewWithSeed(dim, DefaultConfig(), 1234)
	for i := 0; i < n; i++ {
		v := unitVector(rng, dim)
		vectors[i] = v
		if err := g.Insert(i, v); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	var totalHits, totalWanted int
	for q := 0; q < queries; q++ {
		query := unitVector(rng, dim)
		want := bruteForceTopK(vectors, query, topK)
		got, err := g.Search(query, topK)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}

		gotSet := make(map[int]bool, len(got))
		for _, r := range got {
			gotSet[r.ID] = true
		}
		for _, id := range want {
			if gotSet[id] {
				totalHits++
			}
		}
		totalWanted += len(want)
	}

	recall := float64(totalHits) / float64(totalWanted)
	if recall < 0.9 {
		t.Errorf("recall@10 = %.3f, want >= 0.9", recall)
	}
}
