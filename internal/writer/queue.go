package writer

import "sync"

// ReplayQueue is a bounded, thread-safe FIFO ring. When full, Push evicts
// the oldest entry instead of blocking, implementing the
// bounded-loss-under-sustained-outage policy. Pop never blocks.
type ReplayQueue[T any] struct {
	mu       sync.Mutex
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Stats
	totalPushed int64
	totalPopped int64
	dropped     int64
}

// QueueStats contains replay queue statistics.
type QueueStats struct {
	Count       int
	Capacity    int
	TotalPushed int64
	TotalPopped int64
	Dropped     int64
}

// NewReplayQueue creates a queue with the given fixed capacity.
func NewReplayQueue[T any](capacity int) *ReplayQueue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ReplayQueue[T]{
		buf:      make([]T, capacity),
		capacity: capacity,
	}
}

// Push appends an item. If the queue is full, the oldest entry is evicted
// and returned with dropped=true. Push on a closed queue is a no-op and
// reports ok=false.
func (q *ReplayQueue[T]) Push(item T) (evicted T, dropped bool, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.closed {
		return zero, false, false
	}

	if q.count == q.capacity {
		evicted = q.buf[q.head]
		q.buf[q.head] = zero
		q.head = (q.head + 1) % q.capacity
		q.count--
		q.dropped++
		dropped = true
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalPushed++

	return evicted, dropped, true
}

// TryPop removes and returns the oldest item without blocking.
func (q *ReplayQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.count == 0 {
		return zero, false
	}

	item := q.buf[q.head]
	q.buf[q.head] = zero // Clear reference for GC
	q.head = (q.head + 1) % q.capacity
	q.count--
	q.totalPopped++

	return item, true
}

// PushFront returns an item to the head of the queue, used when a drained
// entry fails to replay and must keep its FIFO position. If the queue is
// full the newest entry is evicted to make room.
func (q *ReplayQueue[T]) PushFront(item T) (ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	var zero T
	if q.count == q.capacity {
		q.tail = (q.tail - 1 + q.capacity) % q.capacity
		q.buf[q.tail] = zero
		q.count--
		q.dropped++
	}

	q.head = (q.head - 1 + q.capacity) % q.capacity
	q.buf[q.head] = item
	q.count++

	return true
}

// Close marks the queue closed. Subsequent pushes are rejected; remaining
// items can still be popped for the shutdown drain.
func (q *ReplayQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Len returns the current number of queued items.
func (q *ReplayQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed capacity.
func (q *ReplayQueue[T]) Cap() int {
	return q.capacity
}

// Stats returns queue statistics.
func (q *ReplayQueue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Count:       q.count,
		Capacity:    q.capacity,
		TotalPushed: q.totalPushed,
		TotalPopped: q.totalPopped,
		Dropped:     q.dropped,
	}
}
