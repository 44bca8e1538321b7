package health

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyMonitorIsHealthy(t *testing.T) {
	m := NewMonitor()
	report := m.Snapshot()
	assert.Equal(t, StatusHealthy, report.Status)
	assert.GreaterOrEqual(t, report.UptimeSeconds, 0.0)
	assert.Empty(t, report.Components)
}

func TestFailingCheckDegrades(t *testing.T) {
	m := NewMonitor()
	m.Register("pool", func() error { return nil })
	m.Register("broker", func() error { return errors.New("connection refused") })

	report := m.Snapshot()
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusHealthy, report.Components["pool"])
	assert.Equal(t, "connection refused", report.Components["broker"])
}

func TestRegisterIgnoresInvalid(t *testing.T) {
	m := NewMonitor()
	m.Register("", func() error { return nil })
	m.Register("x", nil)
	assert.Empty(t, m.Snapshot().Components)
}
