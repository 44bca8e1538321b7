package processor

import "sync"

// lifecycle enforces a strict created -> started -> stopped progression.
type lifecycle struct {
	mu      sync.Mutex
	started bool
	stopped bool
}

// start reports whether the transition to started was performed.
func (l *lifecycle) start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return false
	}
	l.started = true
	return true
}

// stop reports whether the transition to stopped was performed. Stopping a
// never-started or already-stopped lifecycle is refused.
func (l *lifecycle) stop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.started || l.stopped {
		return false
	}
	l.stopped = true
	return true
}
