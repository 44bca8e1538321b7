package cache

import "sync/atomic"

// Statistics tracks cache performance counters.
type Statistics struct {
	hits        atomic.Int64
	misses      atomic.Int64
	sets        atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
	currentSize atomic.Int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{}
}

// Hit records a cache hit.
func (s *Statistics) Hit() { s.hits.Add(1) }

// Miss records a cache miss.
func (s *Statistics) Miss() { s.misses.Add(1) }

// Set records a cache write.
func (s *Statistics) Set() { s.sets.Add(1) }

// Eviction records an LRU eviction.
func (s *Statistics) Eviction() { s.evictions.Add(1) }

// Expire records a TTL expiry.
func (s *Statistics) Expire() { s.expirations.Add(1) }

// UpdateSize updates the current entry count.
func (s *Statistics) UpdateSize(size int64) { s.currentSize.Store(size) }

// Snapshot returns a point-in-time copy of the counters.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	return StatisticsSnapshot{
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		Sets:        s.sets.Load(),
		Evictions:   s.evictions.Load(),
		Expirations: s.expirations.Load(),
		CurrentSize: s.currentSize.Load(),
	}
}

// StatisticsSnapshot is an immutable view of cache statistics.
type StatisticsSnapshot struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Sets        int64 `json:"sets"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
	CurrentSize int64 `json:"current_size"`
}

// HitRate returns the fraction of lookups that hit, or 0 with no lookups.
func (s StatisticsSnapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
