package hnsw

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// NodeSnapshot is the serialized form of a single node: its id, its
// vector packed little-endian and base64-encoded, and its per-level
// adjacency lists (connections[l] is the neighbor id set at level l, so
// len(connections) == node's top level + 1).
type NodeSnapshot struct {
	ID          int     `json:"id"`
	Vector      string  `json:"vector"`
	Connections [][]int `json:"connections"`
}

// Snapshot is the full serialized graph, matching the engine's on-disk
// snapshot shape for the HNSW subsystem.
type Snapshot struct {
	Dimensions int            `json:"dimensions"`
	Config     Config         `json:"config"`
	Nodes      []NodeSnapshot `json:"nodes"`
	EntryPoint int            `json:"entryPoint"`
	MaxLevel   int            `json:"maxLevel"`
}

func encodeVectorLE(v []float32) string {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func decodeVectorLE(s string, dim int) ([]float32, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("hnsw: decode vector: %w", err)
	}
	if len(buf) != 4*dim {
		return nil, fmt.Errorf("hnsw: vector byte length %d does not match dimension %d", len(buf), dim)
	}
	out := make([]float32, dim)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out, nil
}

// Snapshot serializes the graph. Node iteration order is not specified;
// it has no bearing on the reconstructed graph's connectivity since
// connections are recorded explicitly rather than rebuilt.
func (g *Graph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]NodeSnapshot, 0, len(g.nodes))
	for id, n := range g.nodes {
		conns := make([][]int, len(n.neighbors))
		for l, ids := range n.neighbors {
			c := make([]int, len(ids))
			copy(c, ids)
			conns[l] = c
		}
		nodes = append(nodes, NodeSnapshot{
			ID:          id,
			Vector:      encodeVectorLE(n.vector),
			Connections: conns,
		})
	}

	entry := g.entryPoint
	if !g.hasEntry {
		entry = -1
	}

	return Snapshot{
		Dimensions: g.dim,
		Config:     g.config,
		Nodes:      nodes,
		EntryPoint: entry,
		MaxLevel:   g.maxLevel,
	}
}

// Load reconstructs a graph from a Snapshot, preserving connectivity,
// entry point, and max level exactly as recorded (no re-insertion, no
// re-running of the level-assignment RNG).
func Load(snap Snapshot) (*Graph, error) {
	g := newGraph(snap.Dimensions, snap.Config, defaultRNG())

	for _, ns := range snap.Nodes {
		vec, err := decodeVectorLE(ns.Vector, snap.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("hnsw: load node %d: %w", ns.ID, err)
		}
		conns := make([][]int, len(ns.Connections))
		for l, ids := range ns.Connections {
			c := make([]int, len(ids))
			copy(c, ids)
			conns[l] = c
		}
		level := len(ns.Connections) - 1
		if level < 0 {
			level = 0
			conns = [][]int{{}}
		}
		g.nodes[ns.ID] = &node{id: ns.ID, vector: vec, level: level, neighbors: conns}
	}

	if snap.EntryPoint >= 0 {
		if _, ok := g.nodes[snap.EntryPoint]; !ok {
			return nil, fmt.Errorf("hnsw: load: entry point %d not present among nodes", snap.EntryPoint)
		}
		g.hasEntry = true
		g.entryPoint = snap.EntryPoint
		g.maxLevel = snap.MaxLevel
	}

	return g, nil
}
