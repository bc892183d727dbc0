package history

import "sync"

// Buffer is an unbounded FIFO queue. Its ring doubles once it is 70% full,
// so Push never blocks.
type Buffer[T any] struct {
	mu     sync.Mutex
	ring   []T
	head   int
	count  int
	closed bool

	// Signalled (non-blocking) on every Push and on Close
	ready chan struct{}

	pushed  int64
	drained int64
	grows   int
}

// NewBuffer creates a buffer with the given initial capacity.
func NewBuffer[T any](initialCapacity int) *Buffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &Buffer[T]{
		ring:  make([]T, initialCapacity),
		ready: make(chan struct{}, 1),
	}
}

// Push appends an item. It returns false once the buffer is closed.
func (b *Buffer[T]) Push(item T) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}

	limit := len(b.ring) * 7 / 10
	if limit < 1 {
		limit = 1
	}
	if b.count+1 >= limit {
		b.resize(len(b.ring) * 2)
	}

	b.ring[(b.head+b.count)%len(b.ring)] = item
	b.count++
	b.pushed++
	b.mu.Unlock()

	b.signal()
	return true
}

// Drain removes up to max items (all items if max <= 0) in FIFO order.
func (b *Buffer[T]) Drain(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.count
	if n == 0 {
		return nil
	}
	if max > 0 && max < n {
		n = max
	}

	var zero T
	out := make([]T, n)
	for i := range out {
		out[i] = b.ring[b.head]
		b.ring[b.head] = zero
		b.head = (b.head + 1) % len(b.ring)
	}
	b.count -= n
	b.drained += int64(n)

	return out
}

// Ready returns a channel that receives after Push or Close. A receive does
// not guarantee the buffer is non-empty.
func (b *Buffer[T]) Ready() <-chan struct{} {
	return b.ready
}

// Close rejects further pushes. Buffered items can still be drained.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.signal()
}

// Len returns the number of buffered items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Stats returns buffer counters.
func (b *Buffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:    b.count,
		Capacity: len(b.ring),
		Pushed:   b.pushed,
		Drained:  b.drained,
		Grows:    b.grows,
	}
}

// BufferStats contains buffer counters.
type BufferStats struct {
	Count    int
	Capacity int
	Pushed   int64
	Drained  int64
	Grows    int
}

func (b *Buffer[T]) signal() {
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// resize moves the items to a ring of size n. Must be called with mu held.
func (b *Buffer[T]) resize(n int) {
	next := make([]T, n)
	for i := 0; i < b.count; i++ {
		next[i] = b.ring[(b.head+i)%len(b.ring)]
	}
	b.ring = next
	b.head = 0
	b.grows++
}
