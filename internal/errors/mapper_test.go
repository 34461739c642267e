package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultErrorMapper_MapsKnownPatterns(t *testing.T) {
	m := NewDefaultErrorMapper()

	cases := []struct {
		name string
		err  error
		kind Kind
	}{
		{"rate limit", stderrors.New("429 too many requests"), KindRateLimited},
		{"auth", stderrors.New("401 unauthorized"), KindAuthFailed},
		{"bad request", stderrors.New("400 invalid request body"), KindInvalidRequest},
		{"timeout", stderrors.New("upstream timeout"), KindTimeout},
		{"network", stderrors.New("dial tcp: connection refused"), KindNetwork},
		{"parse", stderrors.New("unexpected end of JSON input"), KindParse},
		{"server error", stderrors.New("502 bad gateway server error"), KindServerError},
		{"unknown", stderrors.New("something weird happened"), KindInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := m.MapError(tc.err)
			assert.Equal(t, tc.kind, mapped.Kind)
		})
	}
}

func TestDefaultErrorMapper_PreservesStructuredError(t *testing.T) {
	m := NewDefaultErrorMapper()
	original := New(KindAuthFailed, "bad creds")

	mapped := m.MapError(original)
	assert.Same(t, original, mapped)
}

func TestDefaultErrorMapper_MapsContextCancellationAndDeadline(t *testing.T) {
	m := NewDefaultErrorMapper()

	assert.Equal(t, KindCanceled, m.MapError(context.Canceled).Kind)
	assert.Equal(t, KindTimeout, m.MapError(context.DeadlineExceeded).Kind)
}

func TestDefaultErrorMapper_IsRetryableMatchesTransientKinds(t *testing.T) {
	m := NewDefaultErrorMapper()

	assert.True(t, m.IsRetryable(stderrors.New("503 service unavailable")))
	assert.False(t, m.IsRetryable(stderrors.New("401 unauthorized")))
}

func TestKindOf_DefaultsToInternalForUnstructuredError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(stderrors.New("plain error")))
}

func TestKindOf_NilIsEmpty(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestError_UnwrapMatchesSentinel(t *testing.T) {
	err := New(KindTimeout, "slow")
	assert.True(t, stderrors.Is(err, ErrTimeout))
}

func TestAllProvidersFailed_CarriesCauses(t *testing.T) {
	causes := []error{stderrors.New("a failed"), stderrors.New("b failed")}
	err := AllProvidersFailed(causes)
	assert.Equal(t, KindAllProvidersFailed, err.Kind)
	assert.Len(t, err.Causes, 2)
}

func TestPipelineFailed_AnnotatesStage(t *testing.T) {
	err := PipelineFailed(3, stderrors.New("boom"))
	assert.Equal(t, 3, err.Stage)
	assert.Equal(t, KindPipelineFailed, err.Kind)
}
