package frames

import (
	"testing"

	"previewer/models"
)

func frameAt(key int64) *models.CachedFrame {
	return &models.CachedFrame{TimeMillis: key, Width: 2, Height: 2, Pixels: make([]byte, 16)}
}

// TestLRU_EvictsOldestInsertion tests the insertion-order eviction rule
func TestLRU_EvictsOldestInsertion(t *testing.T) {
	c := newFrameLRU(3)

	c.put(1, frameAt(1))
	c.put(2, frameAt(2))
	c.put(3, frameAt(3))
	c.put(4, frameAt(4))

	if _, ok := c.get(1); ok {
		t.Error("oldest insertion should be evicted")
	}
	for _, key := range []int64{2, 3, 4} {
		if _, ok := c.get(key); !ok {
			t.Errorf("key %d should survive", key)
		}
	}
	if c.len() != 3 {
		t.Errorf("cache size = %d, expected 3", c.len())
	}
}

// TestLRU_ReadsDoNotRefresh tests that get leaves eviction order alone
func TestLRU_ReadsDoNotRefresh(t *testing.T) {
	c := newFrameLRU(3)

	c.put(1, frameAt(1))
	c.put(2, frameAt(2))
	c.put(3, frameAt(3))

	// Reading key 1 must not save it from eviction.
	c.get(1)
	c.put(4, frameAt(4))

	if _, ok := c.get(1); ok {
		t.Error("a read must not refresh the entry's eviction position")
	}
}

// TestLRU_RePutRefreshes tests that re-inserting counts as a fresh insertion
func TestLRU_RePutRefreshes(t *testing.T) {
	c := newFrameLRU(3)

	c.put(1, frameAt(1))
	c.put(2, frameAt(2))
	c.put(3, frameAt(3))

	c.put(1, frameAt(1))
	c.put(4, frameAt(4))

	if _, ok := c.get(1); !ok {
		t.Error("re-inserted key should survive")
	}
	if _, ok := c.get(2); ok {
		t.Error("key 2 became the oldest insertion and should be evicted")
	}
}

// TestLRU_InvalidateRangeInclusive tests both boundary keys are dropped
func TestLRU_InvalidateRangeInclusive(t *testing.T) {
	c := newFrameLRU(10)

	for _, key := range []int64{999, 1000, 1500, 2000, 2001} {
		c.put(key, frameAt(key))
	}

	removed := c.invalidateRange(1000, 2000)
	if removed != 3 {
		t.Errorf("removed %d entries, expected 3", removed)
	}
	for _, key := range []int64{1000, 1500, 2000} {
		if _, ok := c.get(key); ok {
			t.Errorf("key %d inside the inclusive range should be gone", key)
		}
	}
	for _, key := range []int64{999, 2001} {
		if _, ok := c.get(key); !ok {
			t.Errorf("key %d outside the range should survive", key)
		}
	}
}

// TestLRU_Clear tests bulk reset
func TestLRU_Clear(t *testing.T) {
	c := newFrameLRU(3)
	c.put(1, frameAt(1))
	c.put(2, frameAt(2))

	c.clear()
	if c.len() != 0 {
		t.Errorf("cache size after clear = %d, expected 0", c.len())
	}

	// The cache stays usable after a clear.
	c.put(5, frameAt(5))
	if _, ok := c.get(5); !ok {
		t.Error("cache should accept inserts after clear")
	}
}
