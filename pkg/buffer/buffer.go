// Package buffer provides a generic, thread-safe ring buffer with eviction-based
// overflow policies.
//
// The ring is fixed-capacity: once full, the configured overflow policy decides
// whether the oldest or the newest item is dropped. Blocking producers is
// deliberately not supported - bounded eviction is the backpressure model of
// the pipeline. Statistics are always collected; Prometheus metrics are
// optional via WithMetrics().
package buffer

// Ring represents a generic bounded ring buffer parameterized by item type T.
type Ring[T any] interface {
	// Write adds an item to the ring. When the ring is full the overflow
	// policy decides which item is dropped; Write itself never fails on a
	// full ring.
	Write(item T) error

	// Read retrieves and removes the oldest item.
	// Returns the zero value and false if the ring is empty.
	Read() (T, bool)

	// Peek retrieves the oldest item without removing it.
	Peek() (T, bool)

	// Items returns a snapshot of all retained items, oldest first.
	Items() []T

	// Last returns a snapshot of the newest n retained items, oldest first.
	// n <= 0 returns all retained items.
	Last(n int) []T

	// Size returns the current number of items in the ring.
	Size() int

	// Capacity returns the maximum number of items the ring can hold.
	Capacity() int

	// Clear removes all items from the ring.
	Clear()

	// Stats returns ring statistics (always available for observability).
	Stats() *Statistics

	// Close shuts down the ring; subsequent writes fail.
	Close() error
}

// OverflowPolicy defines how the ring behaves when it reaches capacity.
type OverflowPolicy int

const (
	// DropOldest removes the oldest item to make room for new items.
	DropOldest OverflowPolicy = iota

	// DropNewest drops new items when the ring is full.
	DropNewest
)

// String returns a human-readable representation of the overflow policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	default:
		return "Unknown"
	}
}

// DropCallback is called with each item dropped by the overflow policy.
type DropCallback[T any] func(item T)

// NewRing creates a new ring buffer with the specified capacity and options.
// Returns an error if metrics registration fails when metrics are requested.
func NewRing[T any](capacity int, options ...Option[T]) (Ring[T], error) {
	opts := applyOptions(options...)
	return newRing(capacity, opts)
}
