package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestAssignsIdentity(t *testing.T) {
	req := NewRequest("hi", []string{"clean_text"}, "u1", PriorityHigh)
	assert.NotEmpty(t, req.RequestID)
	assert.False(t, req.Timestamp.IsZero())

	other := NewRequest("hi", nil, "", PriorityNormal)
	assert.NotEqual(t, req.RequestID, other.RequestID)
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityLow, ParsePriority("low"))
	assert.Equal(t, PriorityHigh, ParsePriority("high"))
	assert.Equal(t, PriorityNormal, ParsePriority("normal"))
	assert.Equal(t, PriorityNormal, ParsePriority(""))
	assert.Equal(t, PriorityNormal, ParsePriority("urgent"))
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env := NewProcessingResult(Result{
		RequestID:         "r1",
		OriginalText:      "susu",
		ProcessedText:     "דודו",
		OperationsApplied: []string{"fix_layout"},
		ConfidenceScore:   0.9,
		Suggestions:       []string{},
	})
	assert.Equal(t, TypeProcessingResult, env.Type)
	assert.Equal(t, "r1", env.RequestID)
	assert.Greater(t, env.Timestamp, 0.0)

	payload, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(payload, &decoded))
	var result Result
	require.NoError(t, json.Unmarshal(decoded.Data, &result))
	assert.Equal(t, "דודו", result.ProcessedText)
}

func TestErrorEnvelope(t *testing.T) {
	env := NewError("text is required", "r2")
	assert.Equal(t, TypeError, env.Type)
	assert.Equal(t, "text is required", env.Message)
	assert.Equal(t, "r2", env.RequestID)
	assert.Nil(t, env.Data)
}

func TestWelcomeCarriesConnectionID(t *testing.T) {
	env := NewWelcome("conn-1")
	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "conn-1", data["connection_id"])
}

func TestMarshalDataDegradesToNull(t *testing.T) {
	env := NewMetrics(func() {}) // functions cannot marshal
	assert.Equal(t, json.RawMessage("null"), env.Data)
}
