package errors

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class ErrorClass
		want  string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.class.String())
	}
}

func TestWrapPreservesChain(t *testing.T) {
	wrapped := Wrap(ErrPortNotWired, "Gate", "DeclarePorts", "control validation")
	require.Error(t, wrapped)
	assert.True(t, stderrors.Is(wrapped, ErrPortNotWired))
	assert.Contains(t, wrapped.Error(), "Gate.DeclarePorts")

	assert.NoError(t, Wrap(nil, "Gate", "DeclarePorts", "control validation"))
}

func TestClassifiedWrappers(t *testing.T) {
	invalid := WrapInvalid(ErrConflictingControls, "Gate", "DeclarePorts", "control sources")
	assert.True(t, IsInvalid(invalid))
	assert.False(t, IsFatal(invalid))
	assert.Equal(t, ErrorInvalid, Classify(invalid))

	fatal := WrapFatal(ErrUnexpectedFinish, "RealtimeFlowLimiter", "Process", "finish accounting")
	assert.True(t, IsFatal(fatal))
	assert.False(t, IsInvalid(fatal))
	assert.Equal(t, ErrorFatal, Classify(fatal))

	transient := WrapTransient(ErrResourceNotReady, "Pool", "Lookup", "resource creation")
	assert.True(t, IsTransient(transient))
	assert.Equal(t, ErrorTransient, Classify(transient))
}

func TestClassificationOfBareSentinels(t *testing.T) {
	// Setup/contract sentinels classify as invalid without wrapping
	assert.True(t, IsInvalid(ErrPortNotWired))
	assert.True(t, IsInvalid(ErrChannelMismatch))
	assert.True(t, IsInvalid(ErrInvalidConfig))

	// Runtime invariant sentinels classify as fatal
	assert.True(t, IsFatal(ErrUnexpectedFinish))
	assert.True(t, IsFatal(ErrTimestampOrder))
	assert.True(t, IsFatal(ErrBoundRegression))

	// Resource not-ready is transient by design
	assert.True(t, IsTransient(ErrResourceNotReady))

	// nil is never classified as anything
	assert.False(t, IsInvalid(nil))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsTransient(nil))
}

func TestClassifiedErrorFields(t *testing.T) {
	err := WrapFatal(ErrUnexpectedFinish, "FlowLimiter", "Process", "in-flight accounting")

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, "FlowLimiter", ce.Component)
	assert.Equal(t, "Process", ce.Operation)
	assert.Equal(t, ErrorFatal, ce.Class)
	assert.True(t, stderrors.Is(ce.Unwrap(), ErrUnexpectedFinish))
}

func TestToRetryConfig(t *testing.T) {
	rc := RetryConfig{
		MaxRetries:    2,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
	}

	cfg := rc.ToRetryConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, time.Second, cfg.MaxDelay)
	assert.True(t, cfg.AddJitter)
}
