package updater

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestEnqueueProcessesAfterDebounce(t *testing.T) {
	var mu sync.Mutex
	var got []Item

	u := New(func(items []Item) error {
		mu.Lock()
		got = append(got, items...)
		mu.Unlock()
		return nil
	}, Config{BatchDelay: 10 * time.Millisecond, MaxBatchSize: 100}, nil)

	u.Enqueue([]Item{{ID: "a"}, {ID: "b"}})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := u.WaitForCompletion(ctx); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("processed %d items, want 2", len(got))
	}
}

func TestEnqueueCoalescesWithinDebounceWindow(t *testing.T) {
	var callCount int
	var mu sync.Mutex

	u := New(func(items []Item) error {
		mu.Lock()
		callCount++
		mu.Unlock()
		return nil
	}, Config{BatchDelay: 50 * time.Millisecond, MaxBatchSize: 100}, nil)

	u.Enqueue([]Item{{ID: "a"}})
	time.Sleep(5 * time.Millisecond)
	u.Enqueue([]Item{{ID: "b"}})
	time.Sleep(5 * time.Millisecond)
	u.Enqueue([]Item{{ID: "c"}})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u.WaitForCompletion(ctx)

	mu.Lock()
	defer mu.Unlock()
	if callCount != 1 {
		t.Errorf("callCount = %d, want 1 (all three enqueues should coalesce)", callCount)
	}
}

func TestFlushProcessesImmediately(t *testing.T) {
	var processed int
	u := New(func(items []Item) error {
		processed += len(items)
		return nil
	}, Config{BatchDelay: time.Hour, MaxBatchSize: 100}, nil)

	u.Enqueue([]Item{{ID: "a"}, {ID: "b"}})
	u.Flush()

	if processed != 2 {
		t.Errorf("processed = %d, want 2 after Flush", processed)
	}
}

func TestMaxBatchSizeSplitsIntoMultipleCalls(t *testing.T) {
	var mu sync.Mutex
	var batchSizes []int

	u := New(func(items []Item) error {
		mu.Lock()
		batchSizes = append(batchSizes, len(items))
		mu.Unlock()
		return nil
	}, Config{BatchDelay: time.Millisecond, MaxBatchSize: 3}, nil)

	items := make([]Item, 10)
	for i := range items {
		items[i] = Item{ID: string(rune('a' + i))}
	}
	u.Enqueue(items)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u.WaitForCompletion(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(batchSizes) != 4 {
		t.Fatalf("got %d batches, want 4 (3+3+3+1)", len(batchSizes))
	}
	total := 0
	for _, n := range batchSizes {
		if n > 3 {
			t.Errorf("batch size %d exceeds MaxBatchSize 3", n)
		}
		total += n
	}
	if total != 10 {
		t.Errorf("total processed = %d, want 10", total)
	}
}

func TestErrorCallbackFiresPerItemInFailedBatch(t *testing.T) {
	var mu sync.Mutex
	var failed []string

	u := New(func(items []Item) error {
		return errTest
	}, Config{BatchDelay: time.Millisecond, MaxBatchSize: 100}, func(item Item, err error) {
		mu.Lock()
		failed = append(failed, item.ID)
		mu.Unlock()
	})

	u.Enqueue([]Item{{ID: "x"}, {ID: "y"}})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u.WaitForCompletion(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(failed) != 2 {
		t.Fatalf("failed callbacks = %d, want 2", len(failed))
	}
}

func TestStatsTracksTotalsAndAverage(t *testing.T) {
	u := New(func(items []Item) error { return nil }, Config{BatchDelay: time.Millisecond, MaxBatchSize: 5}, nil)

	u.Enqueue(make([]Item, 12))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u.WaitForCompletion(ctx)

	stats := u.Stats()
	if stats.TotalProcessed != 12 {
		t.Errorf("TotalProcessed = %d, want 12", stats.TotalProcessed)
	}
	if stats.BatchCount != 3 {
		t.Errorf("BatchCount = %d, want 3 (5+5+2)", stats.BatchCount)
	}
	if stats.IsProcessing {
		t.Error("IsProcessing should be false once drained")
	}
	if stats.PendingCount != 0 {
		t.Errorf("PendingCount = %d, want 0", stats.PendingCount)
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("boom")
