// Package debounce provides a per-key scheduler that coalesces rapid
// successive requests into a single delayed execution.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the coalescing window applied when callers pass no delay.
const DefaultDelay = 500 * time.Millisecond

// Outcome reports how a scheduled execution ended. Exactly one Outcome is
// delivered per Schedule call.
type Outcome struct {
	// Canceled is true when the execution was superseded by a newer
	// Schedule on the same key, or the scheduler stopped, before the
	// delay elapsed. Cancellation never interrupts a running function.
	Canceled bool
	// Err is the function's error when it ran.
	Err error
}

type slot struct {
	timer *time.Timer
	done  chan Outcome
}

// Scheduler holds at most one pending execution per key. Scheduling on a key
// with a pending execution cancels the pending one and takes its place.
type Scheduler struct {
	mu      sync.Mutex
	slots   map[string]*slot
	stopped bool
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{slots: make(map[string]*slot)}
}

// Schedule arranges for fn to run after delay, unless superseded first. The
// returned channel is buffered and yields exactly one Outcome: Canceled when
// the slot was replaced or the scheduler stopped before the timer fired,
// otherwise the result of running fn. A non-positive delay uses DefaultDelay.
func (s *Scheduler) Schedule(key string, delay time.Duration, fn func() error) <-chan Outcome {
	if delay <= 0 {
		delay = DefaultDelay
	}
	done := make(chan Outcome, 1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		done <- Outcome{Canceled: true}
		return done
	}

	if prev, ok := s.slots[key]; ok {
		// Stop reports false when the timer already fired; the running
		// execution then completes on its own and delivers its result.
		if prev.timer.Stop() {
			prev.done <- Outcome{Canceled: true}
		}
		delete(s.slots, key)
	}

	sl := &slot{done: done}
	sl.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.slots[key] == sl {
			delete(s.slots, key)
		}
		s.mu.Unlock()
		done <- Outcome{Err: fn()}
	})
	s.slots[key] = sl
	return done
}

// Pending reports the number of keys with an execution still waiting.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Stop cancels every pending execution and rejects future Schedule calls.
// Executions whose timer already fired run to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	for key, sl := range s.slots {
		if sl.timer.Stop() {
			sl.done <- Outcome{Canceled: true}
		}
		delete(s.slots, key)
	}
}
