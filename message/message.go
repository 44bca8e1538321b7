// Package message defines the wire vocabulary shared by the gateway, the
// registry, and the processor: the JSON envelope exchanged with clients and
// the request/result types that flow through the pipeline.
package message

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Inbound envelope types accepted by the gateway.
const (
	TypeProcessText = "process_text"
	TypeStreamText  = "stream_text"
	TypeGetMetrics  = "get_metrics"
	TypeSubscribe   = "subscribe"
)

// Outbound envelope types produced by the pipeline.
const (
	TypeWelcome               = "welcome"
	TypeProcessingResult      = "processing_result"
	TypeStreamUpdate          = "stream_update"
	TypeMetrics               = "metrics"
	TypeSubscriptionConfirmed = "subscription_confirmed"
	TypeError                 = "error"
)

// Envelope is the wire framing for every message in either direction.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Timestamp float64         `json:"timestamp"`
}

// Priority is an advisory request priority. No preemption is implemented.
type Priority string

// Priority levels ordered low to high.
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps a wire string to a Priority, defaulting to normal.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityLow, PriorityHigh:
		return Priority(s)
	default:
		return PriorityNormal
	}
}

// Request is a text processing request. Immutable once created.
type Request struct {
	RequestID  string
	Text       string
	Operations []string
	UserID     string
	Priority   Priority
	Timestamp  time.Time
}

// NewRequest creates a Request with a fresh id and creation instant.
func NewRequest(text string, operations []string, userID string, priority Priority) Request {
	return Request{
		RequestID:  uuid.NewString(),
		Text:       text,
		Operations: operations,
		UserID:     userID,
		Priority:   priority,
		Timestamp:  time.Now(),
	}
}

// Result is the outcome of one processed request. Immutable; produced exactly
// once per accepted request.
type Result struct {
	RequestID         string   `json:"request_id"`
	OriginalText      string   `json:"original_text"`
	ProcessedText     string   `json:"processed_text"`
	OperationsApplied []string `json:"operations_applied"`
	ProcessingTimeMs  float64  `json:"processing_time_ms"`
	ConfidenceScore   float64  `json:"confidence_score"`
	Suggestions       []string `json:"suggestions"`
	Timestamp         float64  `json:"timestamp"`
}

// StreamUpdate notifies a client that a chunk was appended to a stream.
type StreamUpdate struct {
	StreamID    string `json:"stream_id"`
	ChunkLength int    `json:"chunk_length"`
	TotalLength int    `json:"total_length"`
}

// nowSeconds returns the current time as float seconds, the wire clock format.
func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// marshalData marshals envelope data, degrading to null on failure so a bad
// payload can never block an envelope from being sent.
func marshalData(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// NewWelcome builds the envelope sent to a connection on registration.
func NewWelcome(connectionID string) *Envelope {
	return &Envelope{
		Type:      TypeWelcome,
		Data:      marshalData(map[string]string{"connection_id": connectionID}),
		Timestamp: nowSeconds(),
	}
}

// NewProcessingResult wraps a Result for delivery.
func NewProcessingResult(result Result) *Envelope {
	return &Envelope{
		Type:      TypeProcessingResult,
		Data:      marshalData(result),
		RequestID: result.RequestID,
		Timestamp: nowSeconds(),
	}
}

// NewStreamUpdate wraps a StreamUpdate for delivery.
func NewStreamUpdate(update StreamUpdate) *Envelope {
	return &Envelope{
		Type:      TypeStreamUpdate,
		Data:      marshalData(update),
		Timestamp: nowSeconds(),
	}
}

// NewMetrics wraps a metrics snapshot for delivery.
func NewMetrics(snapshot any) *Envelope {
	return &Envelope{
		Type:      TypeMetrics,
		Data:      marshalData(snapshot),
		Timestamp: nowSeconds(),
	}
}

// NewSubscriptionConfirmed acknowledges a subscribe request.
func NewSubscriptionConfirmed(topics []string) *Envelope {
	return &Envelope{
		Type:      TypeSubscriptionConfirmed,
		Data:      marshalData(map[string][]string{"topics": topics}),
		Timestamp: nowSeconds(),
	}
}

// NewError builds an error envelope, correlated by request id when available.
func NewError(errorMessage, requestID string) *Envelope {
	return &Envelope{
		Type:      TypeError,
		Message:   errorMessage,
		RequestID: requestID,
		Timestamp: nowSeconds(),
	}
}
