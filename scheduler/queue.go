package scheduler

// Priority orders queued chunk renders. Higher values dequeue first.
type Priority int

const (
	// PriorityLow is background fill work, dequeued last.
	PriorityLow Priority = iota
	// PriorityNormal is the default for invalidated or missing chunks.
	PriorityNormal
	// PriorityHigh is playhead-adjacent work. The newest high-priority
	// request dequeues first, since it reflects where the user looks now.
	PriorityHigh
)

// String returns the priority name for logs.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

type queueItem struct {
	index    int
	priority Priority
}

// renderQueue is a priority-ordered list of chunk indices awaiting render.
//
// Ordering: high-priority items sit at the head, newest first; normal items
// follow in arrival order; low items trail in arrival order. The queue holds
// at most one entry per chunk index. Not safe for concurrent use; the
// scheduler guards it with its own mutex.
type renderQueue struct {
	items []queueItem
}

// enqueue inserts the index at its priority position. Re-enqueueing an index
// already present is a no-op, even at a different priority; callers that need
// a priority change remove first. Returns false when the index was already
// queued.
func (q *renderQueue) enqueue(index int, priority Priority) bool {
	for _, item := range q.items {
		if item.index == index {
			return false
		}
	}

	item := queueItem{index: index, priority: priority}
	pos := len(q.items)
	switch priority {
	case PriorityHigh:
		pos = 0
	case PriorityNormal:
		for i, existing := range q.items {
			if existing.priority == PriorityLow {
				pos = i
				break
			}
		}
	}

	q.items = append(q.items, queueItem{})
	copy(q.items[pos+1:], q.items[pos:])
	q.items[pos] = item
	return true
}

// dequeue pops the head of the queue.
func (q *renderQueue) dequeue() (queueItem, bool) {
	if len(q.items) == 0 {
		return queueItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// remove drops the entry for index, reporting whether one existed.
func (q *renderQueue) remove(index int) bool {
	for i, item := range q.items {
		if item.index == index {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// contains reports whether index is queued.
func (q *renderQueue) contains(index int) bool {
	for _, item := range q.items {
		if item.index == index {
			return true
		}
	}
	return false
}

func (q *renderQueue) clear() {
	q.items = nil
}

func (q *renderQueue) len() int {
	return len(q.items)
}
