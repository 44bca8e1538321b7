// Package cache provides a thread-safe LRU cache with optional per-entry TTL.
//
// The cache evicts the least recently used entry when the maximum size is
// exceeded and lazily expires stale entries on access. Statistics are always
// collected.
package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/c360/textpipe/errors"
)

// EvictCallback is invoked with each entry removed by eviction or expiry.
type EvictCallback[V any] func(key string, value V)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time // zero means no expiry
}

// Cache is a thread-safe LRU cache with optional TTL.
type Cache[V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	order   *list.List // front = most recently used
	stats   *Statistics
	evictFn EvictCallback[V]
}

// Option configures cache behavior.
type Option[V any] func(*Cache[V])

// WithTTL sets a time-to-live applied to every entry. Zero disables expiry.
func WithTTL[V any](ttl time.Duration) Option[V] {
	return func(c *Cache[V]) {
		c.ttl = ttl
	}
}

// WithEvictCallback sets a callback invoked for evicted and expired entries.
func WithEvictCallback[V any](fn EvictCallback[V]) Option[V] {
	return func(c *Cache[V]) {
		c.evictFn = fn
	}
}

// New creates a new cache with the given maximum size.
func New[V any](maxSize int, opts ...Option[V]) (*Cache[V], error) {
	if maxSize <= 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("max size must be positive, got %d", maxSize),
			"cache", "New", "validate size")
	}

	c := &Cache[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stats:   NewStatistics(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

// Get retrieves a value by key and marks it as recently used.
// Expired entries are removed and reported as misses.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()

	element, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		c.stats.Miss()
		var zero V
		return zero, false
	}

	e := element.Value.(*entry[V])
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.removeElementLocked(element)
		c.stats.Expire()
		evictFn, k, v := c.evictFn, e.key, e.value
		c.mu.Unlock()

		c.stats.Miss()
		if evictFn != nil {
			evictFn(k, v)
		}
		var zero V
		return zero, false
	}

	c.order.MoveToFront(element)
	c.mu.Unlock()

	c.stats.Hit()
	return e.value, true
}

// Set stores a value with the given key and marks it as recently used.
func (c *Cache[V]) Set(key string, value V) {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	var evicted *entry[V]

	c.mu.Lock()
	if element, exists := c.items[key]; exists {
		e := element.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(element)
		c.mu.Unlock()
		c.stats.Set()
		return
	}

	e := &entry[V]{key: key, value: value, expiresAt: expiresAt}
	c.items[key] = c.order.PushFront(e)

	if len(c.items) > c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			evicted = oldest.Value.(*entry[V])
			c.removeElementLocked(oldest)
			c.stats.Eviction()
		}
	}

	c.stats.UpdateSize(int64(len(c.items)))
	evictFn := c.evictFn
	c.mu.Unlock()

	c.stats.Set()
	if evicted != nil && evictFn != nil {
		evictFn(evicted.key, evicted.value)
	}
}

// Delete removes an entry by key. Returns true if it existed.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		return false
	}

	c.removeElementLocked(element)
	c.stats.UpdateSize(int64(len(c.items)))
	return true
}

// Clear removes all entries from the cache.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.stats.UpdateSize(0)
}

// Size returns the current number of entries in the cache.
func (c *Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns cache statistics.
func (c *Cache[V]) Stats() *Statistics {
	return c.stats
}

// removeElementLocked removes an element from both the list and the map.
// Must be called with the mutex held.
func (c *Cache[V]) removeElementLocked(element *list.Element) {
	e := element.Value.(*entry[V])
	delete(c.items, e.key)
	c.order.Remove(element)
}
