package hnsw

import "container/heap"

// candidate is a node id paired with its distance to the query currently
// being searched, used as the element type of both heaps below.
type candidate struct {
	id int
	d  float32
}

// minCandidateHeap pops the closest candidate first; it drives expansion
// order during layerSearch.
type minCandidateHeap []candidate

func (h minCandidateHeap) Len() int            { return len(h) }
func (h minCandidateHeap) Less(i, j int) bool  { return h[i].d < h[j].d }
func (h minCandidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minCandidateHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *minCandidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// maxCandidateHeap pops the furthest candidate first, so the result set
// can be trimmed to ef by dropping its current worst member.
type maxCandidateHeap []candidate

func (h maxCandidateHeap) Len() int            { return len(h) }
func (h maxCandidateHeap) Less(i, j int) bool  { return h[i].d > h[j].d }
func (h maxCandidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxCandidateHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *maxCandidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// layerSearch runs ef-bounded best-first search at the given level,
// seeded from entryIDs, and returns the result set sorted by ascending
// distance. The caller must hold at least a read lock on g.
func (g *Graph) layerSearch(entryIDs []int, query []float32, level, ef int) []candidate {
	visited := make(map[int]bool, ef*2)
	candidates := &minCandidateHeap{}
	results := &maxCandidateHeap{}

	for _, id := range entryIDs {
		n, ok := g.nodes[id]
		if !ok || visited[id] {
			continue
		}
		visited[id] = true
		d := g.distance(query, n.vector)
		heap.Push(candidates, candidate{id, d})
		heap.Push(results, candidate{id, d})
	}

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(candidate)
		if results.Len() >= ef && c.d > (*results)[0].d {
			break
		}

		n := g.nodes[c.id]
		if level >= len(n.neighbors) {
			continue
		}
		for _, nbID := range n.neighbors[level] {
			if visited[nbID] {
				continue
			}
			visited[nbID] = true

			nb := g.nodes[nbID]
			d := g.distance(query, nb.vector)
			if results.Len() < ef || d < (*results)[0].d {
				heap.Push(candidates, candidate{nbID, d})
				heap.Push(results, candidate{nbID, d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(candidate)
	}
	return out
}
