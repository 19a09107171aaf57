package interactionlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundedQueue_MostRecentFirst(t *testing.T) {
	q := NewBoundedQueue[int](3)
	q.Push(1)
	q.Push(2)
	q.Push(3)

	assert.Equal(t, []int{3, 2, 1}, q.Items())
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 3, q.Cap())
}

func TestBoundedQueue_EvictsOldest(t *testing.T) {
	q := NewBoundedQueue[int](3, 30, 20, 10)

	evicted, ok := q.Push(40)
	assert.True(t, ok)
	assert.Equal(t, 10, evicted)
	assert.Equal(t, []int{40, 30, 20}, q.Items())

	_, ok = NewBoundedQueue[int](2).Push(1)
	assert.False(t, ok)
}

func TestBoundedQueue_SeedTruncated(t *testing.T) {
	q := NewBoundedQueue(2, "a", "b", "c")
	assert.Equal(t, []string{"a", "b"}, q.Items())
}

func TestBoundedQueue_ItemsIsCopy(t *testing.T) {
	q := NewBoundedQueue(2, "a")
	items := q.Items()
	items[0] = "changed"
	assert.Equal(t, []string{"a"}, q.Items())
}

func TestBoundedQueue_MinimumCapacity(t *testing.T) {
	q := NewBoundedQueue[int](0)
	q.Push(1)
	q.Push(2)
	assert.Equal(t, []int{2}, q.Items())
}
