package cache

import "testing"

func TestKeyForIsDeterministic(t *testing.T) {
	a := KeyFor("hello", "model-a")
	b := KeyFor("hello", "model-a")
	if a != b {
		t.Errorf("KeyFor not deterministic: %v vs %v", a, b)
	}
}

func TestKeyForDistinguishesModel(t *testing.T) {
	a := KeyFor("hello", "model-a")
	b := KeyFor("hello", "model-b")
	if a == b {
		t.Errorf("KeyFor collided across models")
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	c := New(4)
	k := KeyFor("x", "m")
	c.Set(k, []float32{1, 2, 3})

	got, ok := c.Get(k)
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 3 || got[0] != 1 {
		t.Errorf("got %v", got)
	}
}

func TestCapacityEvictsLRU(t *testing.T) {
	c := New(2)
	k1, k2, k3 := KeyFor("a", "m"), KeyFor("b", "m"), KeyFor("c", "m")

	c.Set(k1, []float32{1})
	c.Set(k2, []float32{2})
	c.Set(k3, []float32{3}) // evicts k1 (LRU)

	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}
	if _, ok := c.Get(k1); ok {
		t.Error("k1 should have been evicted")
	}
	if _, ok := c.Get(k2); !ok {
		t.Error("k2 should still be present")
	}
	if _, ok := c.Get(k3); !ok {
		t.Error("k3 should still be present")
	}
}

func TestGetPromotesToMRU(t *testing.T) {
	c := New(2)
	k1, k2, k3 := KeyFor("a", "m"), KeyFor("b", "m"), KeyFor("c", "m")

	c.Set(k1, []float32{1})
	c.Set(k2, []float32{2})
	c.Get(k1) // promote k1; k2 is now LRU
	c.Set(k3, []float32{3})

	if _, ok := c.Get(k2); ok {
		t.Error("k2 should have been evicted after promotion of k1")
	}
	if _, ok := c.Get(k1); !ok {
		t.Error("k1 should still be present")
	}
}

func TestSetExistingKeyReplacesAndPromotes(t *testing.T) {
	c := New(2)
	k1, k2 := KeyFor("a", "m"), KeyFor("b", "m")
	c.Set(k1, []float32{1})
	c.Set(k2, []float32{2})
	c.Set(k1, []float32{99}) // replace + promote k1

	got, _ := c.Get(k1)
	if got[0] != 99 {
		t.Errorf("Set on existing key did not replace value: got %v", got)
	}
	if c.Size() != 2 {
		t.Errorf("size changed on replace: %d", c.Size())
	}
}

func TestStatsHitRate(t *testing.T) {
	c := New(4)
	k := KeyFor("a", "m")
	c.Set(k, []float32{1})

	c.Get(k)           // hit
	c.Get(KeyFor("b", "m")) // miss

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("stats = %+v", s)
	}
	if s.HitRate != 0.5 {
		t.Errorf("hit rate = %v, want 0.5", s.HitRate)
	}
}

func TestClearResetsSizeNotStats(t *testing.T) {
	c := New(4)
	k := KeyFor("a", "m")
	c.Set(k, []float32{1})
	c.Get(k)
	c.Clear()

	if c.Size() != 0 {
		t.Errorf("size after clear = %d", c.Size())
	}
	if s := c.Stats(); s.Hits != 1 {
		t.Errorf("hits after clear = %d, want 1 (Clear keeps stats)", s.Hits)
	}
	if _, ok := c.Get(k); ok {
		t.Error("expected miss after clear")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	c := New(4)
	k1, k2 := KeyFor("a", "m"), KeyFor("b", "m")
	c.Set(k1, []float32{1, 2})
	c.Set(k2, []float32{3, 4})

	snap, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	restored := New(4)
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	got, ok := restored.Get(k1)
	if !ok || got[0] != 1 || got[1] != 2 {
		t.Errorf("restored k1 = %v, ok=%v", got, ok)
	}
	got2, ok := restored.Get(k2)
	if !ok || got2[0] != 3 {
		t.Errorf("restored k2 = %v, ok=%v", got2, ok)
	}
}
