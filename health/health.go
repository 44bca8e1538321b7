// Package health aggregates component liveness checks into one report.
package health

import (
	"sync"
	"time"
)

// Statuses reported for the process and its components.
const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

// Check probes one component. A nil return means healthy.
type Check func() error

// Monitor runs registered checks on demand.
type Monitor struct {
	mu        sync.RWMutex
	checks    map[string]Check
	startTime time.Time
}

// NewMonitor creates a Monitor; uptime counts from this call.
func NewMonitor() *Monitor {
	return &Monitor{
		checks:    make(map[string]Check),
		startTime: time.Now(),
	}
}

// Register adds a named check, replacing any previous check with that name.
func (m *Monitor) Register(name string, check Check) {
	if name == "" || check == nil {
		return
	}
	m.mu.Lock()
	m.checks[name] = check
	m.mu.Unlock()
}

// Report is the outcome of running every check once.
type Report struct {
	Status        string            `json:"status"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Components    map[string]string `json:"components,omitempty"`
}

// Snapshot runs all checks and reports degraded if any fails.
func (m *Monitor) Snapshot() Report {
	m.mu.RLock()
	checks := make(map[string]Check, len(m.checks))
	for name, check := range m.checks {
		checks[name] = check
	}
	m.mu.RUnlock()

	report := Report{
		Status:        StatusHealthy,
		UptimeSeconds: time.Since(m.startTime).Seconds(),
	}
	if len(checks) > 0 {
		report.Components = make(map[string]string, len(checks))
	}
	for name, check := range checks {
		if err := check(); err != nil {
			report.Status = StatusDegraded
			report.Components[name] = err.Error()
		} else {
			report.Components[name] = StatusHealthy
		}
	}
	return report
}
