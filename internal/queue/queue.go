package queue

import (
	"sync"
)

// Ring is a thread-safe bounded queue. Pushing onto a full ring evicts the
// oldest item.
type Ring[T any] struct {
	mu    sync.Mutex
	items []T
	head  int // index of the oldest item
	size  int
}

// New creates an empty ring holding at most capacity items.
// A capacity below 1 is treated as 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{
		items: make([]T, capacity),
	}
}

// Push appends items, evicting the oldest ones when the ring is full.
// Returns how many items were evicted.
func (q *Ring[T]) Push(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	evicted := 0
	for _, item := range items {
		if q.size == len(q.items) {
			q.items[q.head] = item
			q.head = (q.head + 1) % len(q.items)
			evicted++
			continue
		}
		q.items[(q.head+q.size)%len(q.items)] = item
		q.size++
	}
	return evicted
}

// Pop removes and returns the oldest item. Returns zero value if empty.
func (q *Ring[T]) Pop() T {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.size == 0 {
		return zero
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.size--
	return item
}

// Last returns up to n items, newest first. n <= 0 returns everything.
func (q *Ring[T]) Last(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || n > q.size {
		n = q.size
	}
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		idx := (q.head + q.size - 1 - i) % len(q.items)
		out = append(out, q.items[idx])
	}
	return out
}

// Items returns every item, oldest first.
func (q *Ring[T]) Items() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, 0, q.size)
	for i := 0; i < q.size; i++ {
		out = append(out, q.items[(q.head+i)%len(q.items)])
	}
	return out
}

// Empty returns true if the ring has no items.
func (q *Ring[T]) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of items held.
func (q *Ring[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the maximum number of items held.
func (q *Ring[T]) Cap() int {
	return len(q.items)
}

// Clear removes all items.
func (q *Ring[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.items)
	q.head = 0
	q.size = 0
}
