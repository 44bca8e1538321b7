package buffer

import (
	"sync/atomic"
	"time"
)

// Statistics tracks ring performance counters.
type Statistics struct {
	writes      atomic.Int64
	reads       atomic.Int64
	drops       atomic.Int64
	currentSize atomic.Int64
	maxSize     atomic.Int64
	startTime   time.Time
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

// Write records a ring write operation.
func (s *Statistics) Write() {
	s.writes.Add(1)
}

// Read records a ring read operation.
func (s *Statistics) Read() {
	s.reads.Add(1)
}

// Drop records an item dropped by the overflow policy.
func (s *Statistics) Drop() {
	s.drops.Add(1)
}

// UpdateSize updates the current ring size and high-water mark.
func (s *Statistics) UpdateSize(size int64) {
	s.currentSize.Store(size)
	for {
		max := s.maxSize.Load()
		if size <= max || s.maxSize.CompareAndSwap(max, size) {
			return
		}
	}
}

// Snapshot returns a point-in-time copy of the counters.
func (s *Statistics) Snapshot() StatisticsSnapshot {
	return StatisticsSnapshot{
		Writes:      s.writes.Load(),
		Reads:       s.reads.Load(),
		Drops:       s.drops.Load(),
		CurrentSize: s.currentSize.Load(),
		MaxSize:     s.maxSize.Load(),
		Uptime:      time.Since(s.startTime),
	}
}

// StatisticsSnapshot is an immutable view of ring statistics.
type StatisticsSnapshot struct {
	Writes      int64         `json:"writes"`
	Reads       int64         `json:"reads"`
	Drops       int64         `json:"drops"`
	CurrentSize int64         `json:"current_size"`
	MaxSize     int64         `json:"max_size"`
	Uptime      time.Duration `json:"uptime"`
}
