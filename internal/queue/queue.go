// Package queue provides the bounded FIFO buffers that decouple the
// ingestion cadence from downstream consumers.
package queue

import "sync"

// Queue is a fixed-capacity FIFO ring buffer, safe for concurrent use.
// Enqueue on a full queue evicts the oldest unconsumed item instead of
// blocking the producer; evictions are counted as drops. This is the
// documented data-loss policy for overload, not an error condition.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	head    int
	size    int
	dropped int64
}

// New creates a queue with the given capacity. Capacity must be positive.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic("queue: capacity must be positive")
	}
	return &Queue[T]{items: make([]T, capacity)}
}

// Enqueue appends an item, evicting the oldest entry when full. Returns true
// if an eviction occurred. Never blocks.
func (q *Queue[T]) Enqueue(item T) (evicted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == len(q.items) {
		// Overwrite the slot at head and advance: the oldest item is lost.
		q.items[q.head] = item
		q.head = (q.head + 1) % len(q.items)
		q.dropped++
		return true
	}

	q.items[(q.head+q.size)%len(q.items)] = item
	q.size++
	return false
}

// Dequeue removes and returns the oldest item. The second return is false
// when the queue is empty. Never blocks.
func (q *Queue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.size == 0 {
		return zero, false
	}

	item := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.size--
	return item, true
}

// DrainUpTo removes and returns up to n oldest items in arrival order.
func (q *Queue[T]) DrainUpTo(n int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > q.size {
		n = q.size
	}
	if n <= 0 {
		return nil
	}

	var zero T
	out := make([]T, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, q.items[q.head])
		q.items[q.head] = zero
		q.head = (q.head + 1) % len(q.items)
		q.size--
	}
	return out
}

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int {
	return len(q.items)
}

// Dropped returns the total number of evictions since creation.
func (q *Queue[T]) Dropped() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
