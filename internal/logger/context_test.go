package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTraceID_RoundTrips(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trace-123")
	assert.Equal(t, "trace-123", GetTraceID(ctx))
}

func TestGetTraceID_MissingReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", GetTraceID(context.Background()))
}

func TestWithSessionID_RoundTrips(t *testing.T) {
	ctx := WithSessionID(context.Background(), "session-abc")
	assert.Equal(t, "session-abc", GetSessionID(ctx))
}

func TestGetSessionID_MissingReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", GetSessionID(context.Background()))
}

func TestSetup_DoesNotPanicForKnownAndUnknownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unknown"} {
		assert.NotPanics(t, func() { Setup(level) })
	}
}
