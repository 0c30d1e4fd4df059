// Package cache implements the fixed-capacity LRU embedding cache keyed
// by (text, model), with recency eviction and hit/miss statistics.
package cache

import (
	"container/list"
	"encoding/base64"
	"fmt"
	"sync"
)

// Key is the cache key: an 8-hex-digit MurmurHash3 of the text (seed 0)
// combined with the MurmurHash3 of the model id (seed 1).
type Key uint64

// KeyFor computes the cache key for a (text, model) pair.
func KeyFor(text, model string) Key {
	textHash := murmur3_32([]byte(text), 0)
	modelHash := murmur3_32([]byte(model), 1)
	return Key(uint64(textHash)<<32 | uint64(modelHash))
}

type entry struct {
	key    Key
	vector []float32
}

// Stats reports cache hit/miss counters.
type Stats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Cache is a fixed-capacity, not-safe-for-concurrent-use-without-external-
// synchronization LRU cache from Key to embedding vector. It matches the
// engine's single-threaded cooperative scheduling model; a sync.Mutex
// is still held internally so a cache shared across multiple engines
// driven from independent goroutines is not corrupted, even though
// concurrent callers must still serialize their own add/search
// sequences.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	list    *list.List
	items   map[Key]*list.Element

	hits   uint64
	misses uint64
}

// New creates an LRU cache with the given capacity. A fixed capacity is
// required, so a non-positive maxSize is rejected in favor of a sane
// default of 1.
func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache{
		maxSize: maxSize,
		list:    list.New(),
		items:   make(map[Key]*list.Element, maxSize),
	}
}

// Get returns the cached vector for key, promoting it to most-recently-used
// on a hit.
func (c *Cache) Get(key Key) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.list.MoveToFront(elem)
	c.hits++
	return elem.Value.(*entry).vector, true
}

// Has reports whether key is present, without affecting recency or stats.
func (c *Cache) Has(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Set inserts or replaces the vector for key, promoting it to
// most-recently-used. If inserting a new key would exceed capacity, the
// least-recently-used entry is evicted first.
func (c *Cache) Set(key Key, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry).vector = vector
		c.list.MoveToFront(elem)
		return
	}

	for c.list.Len() >= c.maxSize {
		c.evictOldest()
	}

	elem := c.list.PushFront(&entry{key: key, vector: vector})
	c.items[key] = elem
}

// Clear empties the cache without resetting hit/miss statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Init()
	c.items = make(map[Key]*list.Element, c.maxSize)
}

// Size returns the current number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// Stats reports cumulative hit/miss counters and current occupancy.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Size:    c.list.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate,
	}
}

func (c *Cache) evictOldest() {
	elem := c.list.Back()
	if elem == nil {
		return
	}
	c.list.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}

// SerializedEntry is a (key, base64-encoded little-endian float32 vector)
// pair, in most-recently-used-first order, as produced by Snapshot.
type SerializedEntry struct {
	Key    Key    `json:"key"`
	Vector string `json:"vector"`
}

// Snapshot serializes the cache to a list of (key, base64-vector) pairs,
// most-recently-used first.
func (c *Cache) Snapshot() ([]SerializedEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]SerializedEntry, 0, c.list.Len())
	for e := c.list.Front(); e != nil; e = e.Next() {
		ent := e.Value.(*entry)
		b, err := encodeFloat32LE(ent.vector)
		if err != nil {
			return nil, fmt.Errorf("cache: snapshot key %d: %w", ent.key, err)
		}
		out = append(out, SerializedEntry{Key: ent.key, Vector: base64.StdEncoding.EncodeToString(b)})
	}
	return out, nil
}

// Restore loads entries produced by Snapshot, keeping their MRU-first
// order: the first entry given ends up most-recently-used and the last
// one least-recently-used. Restore clears any existing contents first.
func (c *Cache) Restore(entries []SerializedEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.list.Init()
	c.items = make(map[Key]*list.Element, c.maxSize)

	// entries is MRU-first; push back-to-front so relative order is kept.
	for i := len(entries) - 1; i >= 0; i-- {
		se := entries[i]
		raw, err := base64.StdEncoding.DecodeString(se.Vector)
		if err != nil {
			return fmt.Errorf("cache: restore key %d: %w", se.Key, err)
		}
		vec, err := decodeFloat32LE(raw)
		if err != nil {
			return fmt.Errorf("cache: restore key %d: %w", se.Key, err)
		}
		if c.list.Len() >= c.maxSize {
			continue
		}
		elem := c.list.PushFront(&entry{key: se.Key, vector: vec})
		c.items[se.Key] = elem
	}
	return nil
}
