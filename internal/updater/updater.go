// Package updater implements a single-consumer background queue that
// batches pending item additions and applies them through the engine's
// add path, off the caller's critical path, using a debounce timer to
// coalesce bursts of enqueues into one batch.
package updater

import (
	"context"
	"sync"
	"time"
)

// Item is the minimal payload the updater batches: an id, its text, and
// optional metadata, mirroring the engine's add() input shape.
type Item struct {
	ID       string
	Text     string
	Metadata any
}

// AddFunc applies a batch of items through the engine's add path. It is
// a callback rather than a direct engine reference so this package has
// no import-time dependency on the façade (the façade depends on
// updater, not the other way around).
type AddFunc func(items []Item) error

// ErrorCallback is invoked once per item in a batch that failed to add.
type ErrorCallback func(item Item, err error)

// Config holds the updater's batching parameters.
type Config struct {
	// BatchDelay is the debounce window between the last enqueue and
	// processing starting. Default 100ms.
	BatchDelay time.Duration
	// MaxBatchSize caps how many items a single AddFunc call receives;
	// the consumer loops until the queue drains. Default 100.
	MaxBatchSize int
}

// DefaultConfig returns the documented default batching parameters.
func DefaultConfig() Config {
	return Config{BatchDelay: 100 * time.Millisecond, MaxBatchSize: 100}
}

// Stats reports cumulative and current queue state.
type Stats struct {
	TotalProcessed int
	PendingCount   int
	BatchCount     int
	AvgBatchSize   float64
	IsProcessing   bool
}

// Updater is a FIFO queue of pending items, drained by a single
// consumer on a debounce timer.
type Updater struct {
	mu     sync.Mutex
	add    AddFunc
	onErr  ErrorCallback
	config Config

	pending []Item
	timer   *time.Timer

	totalProcessed int
	batchCount     int
	isProcessing   bool
}

// New creates an Updater that applies batches via add.
func New(add AddFunc, config Config, onErr ErrorCallback) *Updater {
	if config.BatchDelay <= 0 {
		config.BatchDelay = 100 * time.Millisecond
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 100
	}
	return &Updater{add: add, config: config, onErr: onErr}
}

// Enqueue appends items to the pending queue and (re)schedules
// processing after the debounce window. Repeated calls within the
// window coalesce into one batch cycle, since each call resets the
// pending timer rather than starting a second one.
func (u *Updater) Enqueue(items []Item) {
	if len(items) == 0 {
		return
	}

	u.mu.Lock()
	u.pending = append(u.pending, items...)
	if u.timer != nil {
		u.timer.Stop()
	}
	u.timer = time.AfterFunc(u.config.BatchDelay, u.drain)
	u.mu.Unlock()
}

// Flush cancels any pending debounce timer and processes immediately.
func (u *Updater) Flush() {
	u.mu.Lock()
	if u.timer != nil {
		u.timer.Stop()
		u.timer = nil
	}
	u.mu.Unlock()
	u.drain()
}

// drain takes up to MaxBatchSize items at a time and applies them,
// looping until the queue is empty.
func (u *Updater) drain() {
	for {
		u.mu.Lock()
		if len(u.pending) == 0 {
			u.isProcessing = false
			u.mu.Unlock()
			return
		}

		u.isProcessing = true
		n := u.config.MaxBatchSize
		if n > len(u.pending) {
			n = len(u.pending)
		}
		batch := u.pending[:n]
		u.pending = u.pending[n:]
		u.mu.Unlock()

		err := u.add(batch)

		u.mu.Lock()
		u.totalProcessed += len(batch)
		u.batchCount++
		u.mu.Unlock()

		if err != nil && u.onErr != nil {
			for _, it := range batch {
				u.onErr(it, err)
			}
		}
	}
}

// WaitForCompletion polls until the queue is empty and no batch is in
// flight, or ctx is done.
func (u *Updater) WaitForCompletion(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()

	for {
		u.mu.Lock()
		done := len(u.pending) == 0 && !u.isProcessing
		u.mu.Unlock()
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stats returns a snapshot of the updater's counters.
func (u *Updater) Stats() Stats {
	u.mu.Lock()
	defer u.mu.Unlock()

	var avg float64
	if u.batchCount > 0 {
		avg = float64(u.totalProcessed) / float64(u.batchCount)
	}
	return Stats{
		TotalProcessed: u.totalProcessed,
		PendingCount:   len(u.pending),
		BatchCount:     u.batchCount,
		AvgBatchSize:   avg,
		IsProcessing:   u.isProcessing,
	}
}
