package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(99).String())
}

func TestWrapFormat(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, "Processor", "ProcessTextRequest", "operation dispatch")
	require.Error(t, err)
	assert.Equal(t, "Processor.ProcessTextRequest: operation dispatch failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, base))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "C", "M", "a"))
	assert.NoError(t, WrapInvalid(nil, "C", "M", "a"))
	assert.NoError(t, WrapTransient(nil, "C", "M", "a"))
	assert.NoError(t, WrapFatal(nil, "C", "M", "a"))
}

func TestClassificationOfSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"missing text", ErrMissingText, ErrorInvalid},
		{"batch too large", ErrBatchTooLarge, ErrorInvalid},
		{"unknown operation", ErrUnknownOperation, ErrorInvalid},
		{"decode failed", ErrDecodeFailed, ErrorInvalid},
		{"delivery failed", ErrDeliveryFailed, ErrorTransient},
		{"rate limited", ErrRateLimited, ErrorTransient},
		{"context canceled", context.Canceled, ErrorTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrUnknownOperation)
	assert.True(t, IsInvalid(err))

	err = WrapInvalid(stderrors.New("bad payload"), "Gateway", "decode", "unmarshal envelope")
	assert.True(t, IsInvalid(err))
	assert.False(t, IsTransient(err))

	err = WrapTransient(stderrors.New("sink write"), "Registry", "Deliver", "send")
	assert.True(t, IsTransient(err))

	err = WrapFatal(stderrors.New("corrupt state"), "Processor", "Start", "init")
	assert.True(t, IsFatal(err))
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	base := ErrConnectionNotFound
	err := WrapTransient(base, "Registry", "Deliver", "lookup")

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, "Registry", ce.Component)
	assert.True(t, stderrors.Is(err, base))
}
