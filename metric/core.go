package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Core contains pipeline-level metrics shared by all components
type Core struct {
	RequestsTotal      *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	ConnectionsActive  prometheus.Gauge
	ConnectionsTotal   prometheus.Counter
	StreamChunksTotal  prometheus.Counter
	DebounceOutcomes   *prometheus.CounterVec
	DeliveryFailures   prometheus.Counter
	ErrorsTotal        *prometheus.CounterVec
}

// NewCore creates a new Core instance with all pipeline metrics
func NewCore() *Core {
	return &Core{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "textpipe",
				Subsystem: "requests",
				Name:      "total",
				Help:      "Total number of processing requests by outcome",
			},
			[]string{"status"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "textpipe",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Operation set execution duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"operation"},
		),

		ConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "textpipe",
				Subsystem: "connections",
				Name:      "active",
				Help:      "Number of currently registered active connections",
			},
		),

		ConnectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "textpipe",
				Subsystem: "connections",
				Name:      "total",
				Help:      "Total number of connections ever registered",
			},
		),

		// Stream ids are chosen by clients; keeping them out of the label
		// set keeps the series count bounded.
		StreamChunksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "textpipe",
				Subsystem: "streams",
				Name:      "chunks_total",
				Help:      "Total number of stream chunks appended",
			},
		),

		DebounceOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "textpipe",
				Subsystem: "debounce",
				Name:      "outcomes_total",
				Help:      "Debounced task outcomes (executed, canceled, failed)",
			},
			[]string{"outcome"},
		),

		DeliveryFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "textpipe",
				Subsystem: "delivery",
				Name:      "failures_total",
				Help:      "Total number of failed deliveries to connection sinks",
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "textpipe",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by component and type",
			},
			[]string{"component", "type"},
		),
	}
}

// RecordRequest increments the request counter for an outcome status
func (c *Core) RecordRequest(status string) {
	c.RequestsTotal.WithLabelValues(status).Inc()
}

// RecordProcessingDuration records operation set execution time
func (c *Core) RecordProcessingDuration(operation string, duration time.Duration) {
	c.ProcessingDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordConnectionAdded updates connection gauges for a new connection
func (c *Core) RecordConnectionAdded() {
	c.ConnectionsActive.Inc()
	c.ConnectionsTotal.Inc()
}

// RecordConnectionRemoved updates the active connection gauge
func (c *Core) RecordConnectionRemoved() {
	c.ConnectionsActive.Dec()
}

// RecordStreamChunk increments the appended chunk counter
func (c *Core) RecordStreamChunk() {
	c.StreamChunksTotal.Inc()
}

// RecordDebounceOutcome increments a debounce outcome counter
func (c *Core) RecordDebounceOutcome(outcome string) {
	c.DebounceOutcomes.WithLabelValues(outcome).Inc()
}

// RecordDeliveryFailure increments the delivery failure counter
func (c *Core) RecordDeliveryFailure() {
	c.DeliveryFailures.Inc()
}

// RecordError increments the error counter
func (c *Core) RecordError(component, errorType string) {
	c.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
