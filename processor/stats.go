package processor

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the pipeline counters. Mutation stays
// inside the processor; readers only ever see copies.
type Snapshot struct {
	TotalRequests           int64   `json:"total_requests"`
	SuccessfulRequests      int64   `json:"successful_requests"`
	FailedRequests          int64   `json:"failed_requests"`
	AverageProcessingTimeMs float64 `json:"average_processing_time_ms"`
	ActiveConnections       int     `json:"active_connections"`
	TotalConnectionsEver    int64   `json:"total_connections_ever"`
	UptimeSeconds           float64 `json:"uptime_seconds"`
	CacheHitRate            float64 `json:"cache_hit_rate"`
}

// pipelineStats holds the counters behind one mutex so each outcome updates
// the total, the per-status count, and the running mean in a single critical
// section.
type pipelineStats struct {
	mu         sync.Mutex
	total      int64
	successful int64
	failed     int64
	averageMs  float64
}

func (s *pipelineStats) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total, s.successful, s.failed, s.averageMs = 0, 0, 0, 0
}

// recordSuccess folds the elapsed processing time into the incremental
// running mean over successful requests.
func (s *pipelineStats) recordSuccess(elapsed time.Duration) {
	ms := float64(elapsed) / float64(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.successful++
	s.averageMs += (ms - s.averageMs) / float64(s.successful)
}

func (s *pipelineStats) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.failed++
}

func (s *pipelineStats) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		TotalRequests:           s.total,
		SuccessfulRequests:      s.successful,
		FailedRequests:          s.failed,
		AverageProcessingTimeMs: s.averageMs,
	}
}
