package interactionlog

// BoundedQueue keeps at most Cap items, most recent first. Pushing onto a
// full queue evicts the oldest item.
type BoundedQueue[T any] struct {
	items    []T
	capacity int
}

// NewBoundedQueue returns a queue of the given capacity seeded with items,
// which are taken to be most recent first. Items beyond capacity are dropped.
func NewBoundedQueue[T any](capacity int, items ...T) *BoundedQueue[T] {
	if capacity < 1 {
		capacity = 1
	}
	if len(items) > capacity {
		items = items[:capacity]
	}
	q := &BoundedQueue[T]{items: make([]T, 0, capacity), capacity: capacity}
	q.items = append(q.items, items...)
	return q
}

// Push inserts item at the front and returns the evicted item, if any.
func (q *BoundedQueue[T]) Push(item T) (evicted T, ok bool) {
	if len(q.items) == q.capacity {
		evicted, ok = q.items[len(q.items)-1], true
		q.items = q.items[:len(q.items)-1]
	}
	q.items = append(q.items, item)
	copy(q.items[1:], q.items[:len(q.items)-1])
	q.items[0] = item
	return evicted, ok
}

// Items returns a copy of the contents, most recent first.
func (q *BoundedQueue[T]) Items() []T {
	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of items held.
func (q *BoundedQueue[T]) Len() int {
	return len(q.items)
}

// Cap returns the capacity.
func (q *BoundedQueue[T]) Cap() int {
	return q.capacity
}
