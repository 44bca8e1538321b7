package buffer

import (
	"sync"

	"github.com/c360/textpipe/errors"
)

// ring is a thread-safe bounded ring buffer with eviction-based overflow.
type ring[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // oldest retained item
	stats    *Statistics
	metrics  *ringMetrics
	opts     *ringOptions[T]
	closed   bool
}

func newRing[T any](capacity int, opts *ringOptions[T]) (*ring[T], error) {
	if capacity <= 0 {
		capacity = 1
	}

	stats := NewStatistics()

	var metrics *ringMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newRingMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "newRing", "metrics registration")
		}
	}

	return &ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    stats,
		metrics:  metrics,
		opts:     opts,
	}, nil
}

// Write adds an item according to the overflow policy.
func (r *ring[T]) Write(item T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Ring", "Write", "ring closed")
	}

	if r.size == r.capacity {
		switch r.opts.overflowPolicy {
		case DropOldest:
			dropped := r.items[r.tail]
			r.tail = (r.tail + 1) % r.capacity
			r.size--

			r.stats.Drop()
			if r.metrics != nil {
				r.metrics.recordDrop()
			}

			if r.opts.dropCallback != nil {
				// invoked outside the lock to avoid deadlock
				defer r.opts.dropCallback(dropped)
			}

		case DropNewest:
			r.stats.Drop()
			if r.metrics != nil {
				r.metrics.recordDrop()
			}

			if r.opts.dropCallback != nil {
				defer r.opts.dropCallback(item)
			}
			return nil
		}
	}

	r.items[r.head] = item
	r.head = (r.head + 1) % r.capacity
	r.size++

	r.stats.Write()
	r.stats.UpdateSize(int64(r.size))

	if r.metrics != nil {
		r.metrics.recordWrite(r.size, r.capacity)
	}

	return nil
}

// Read retrieves and removes the oldest item.
func (r *ring[T]) Read() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T

	if r.size == 0 {
		return zero, false
	}

	item := r.items[r.tail]
	r.items[r.tail] = zero // clear for GC
	r.tail = (r.tail + 1) % r.capacity
	r.size--

	r.stats.Read()
	r.stats.UpdateSize(int64(r.size))

	if r.metrics != nil {
		r.metrics.recordRead(r.size, r.capacity)
	}

	return item, true
}

// Peek retrieves the oldest item without removing it.
func (r *ring[T]) Peek() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T

	if r.size == 0 {
		return zero, false
	}

	return r.items[r.tail], true
}

// Items returns a snapshot of all retained items, oldest first.
func (r *ring[T]) Items() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked(r.size)
}

// Last returns a snapshot of the newest n retained items, oldest first.
func (r *ring[T]) Last(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 || n > r.size {
		n = r.size
	}
	return r.snapshotLocked(n)
}

// snapshotLocked copies the newest n items in arrival order.
// Must be called with the mutex held.
func (r *ring[T]) snapshotLocked(n int) []T {
	if n == 0 {
		return nil
	}

	result := make([]T, n)
	start := (r.tail + r.size - n) % r.capacity
	for i := 0; i < n; i++ {
		result[i] = r.items[(start+i)%r.capacity]
	}
	return result
}

// Size returns the current number of items in the ring.
func (r *ring[T]) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Capacity returns the maximum number of items the ring can hold.
func (r *ring[T]) Capacity() int {
	return r.capacity // immutable, no lock needed
}

// Clear removes all items from the ring.
func (r *ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	for i := 0; i < r.capacity; i++ {
		r.items[i] = zero
	}

	r.head = 0
	r.tail = 0
	r.size = 0

	r.stats.UpdateSize(0)
	if r.metrics != nil {
		r.metrics.updateSize(0, r.capacity)
	}
}

// Stats returns ring statistics.
func (r *ring[T]) Stats() *Statistics {
	return r.stats
}

// Close shuts down the ring.
func (r *ring[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	return nil
}
