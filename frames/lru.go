package frames

import (
	"sync"

	"previewer/models"
)

// frameLRU holds decoded frames keyed by millisecond-rounded timeline time.
//
// Eviction is by insertion order, not access order: scrubbing re-reads the
// same neighborhood constantly, and evicting the oldest insertion keeps the
// most recently visited region resident without per-read bookkeeping.
type frameLRU struct {
	mu       sync.Mutex
	capacity int
	entries  map[int64]*models.CachedFrame
	order    []int64 // insertion order, oldest first
}

func newFrameLRU(capacity int) *frameLRU {
	return &frameLRU{
		capacity: capacity,
		entries:  make(map[int64]*models.CachedFrame, capacity),
	}
}

// get returns the cached frame for the key. Reads do not refresh the entry's
// eviction position.
func (c *frameLRU) get(key int64) (*models.CachedFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	frame, ok := c.entries[key]
	return frame, ok
}

// put inserts the frame, evicting the oldest insertion when full.
// Re-inserting an existing key counts as a fresh insertion.
func (c *frameLRU) put(key int64, frame *models.CachedFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.removeKeyLocked(key)
	}

	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = frame
	c.order = append(c.order, key)
}

// invalidateRange drops every entry whose key lies in [startMs, endMs],
// inclusive on both ends: a frame exactly at an edit boundary may show
// either side, so it goes too.
func (c *frameLRU) invalidateRange(startMs, endMs int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if key >= startMs && key <= endMs {
			c.removeKeyLocked(key)
			removed++
		}
	}
	return removed
}

func (c *frameLRU) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int64]*models.CachedFrame, c.capacity)
	c.order = nil
}

func (c *frameLRU) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *frameLRU) removeKeyLocked(key int64) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
