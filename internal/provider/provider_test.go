package provider

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cogerrors "github.com/harunnryd/cogproc/internal/errors"
	"github.com/harunnryd/cogproc/internal/contract"
)

// scriptedRaw replays a fixed sequence of responses/errors, one per call.
type scriptedRaw struct {
	name  string
	calls int32
	steps []func() (*contract.CompletionResponse, error)
}

func (s *scriptedRaw) Name() string { return s.name }

func (s *scriptedRaw) Query(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	i := atomic.AddInt32(&s.calls, 1) - 1
	if int(i) >= len(s.steps) {
		return s.steps[len(s.steps)-1]()
	}
	return s.steps[i]()
}

func ok(text string) func() (*contract.CompletionResponse, error) {
	return func() (*contract.CompletionResponse, error) {
		return &contract.CompletionResponse{Choices: []contract.Choice{{Message: contract.Message{Content: text}}}}, nil
	}
}

func fail(kind cogerrors.Kind) func() (*contract.CompletionResponse, error) {
	return func() (*contract.CompletionResponse, error) {
		return nil, cogerrors.New(kind, "boom")
	}
}

func TestWrapped_SucceedsOnFirstAttempt(t *testing.T) {
	raw := &scriptedRaw{name: "p", steps: []func() (*contract.CompletionResponse, error){ok("hi")}}
	w := Wrap(raw, Config{RetryMax: 3, RetryBaseBackoff: time.Millisecond, RetryMaxBackoff: 2 * time.Millisecond, Timeout: time.Second, OverallTimeout: 5 * time.Second})

	resp, err := w.Query(context.Background(), contract.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Text())
	assert.Equal(t, HealthHealthy, w.Health())
}

func TestWrapped_RetriesTransientThenSucceeds(t *testing.T) {
	raw := &scriptedRaw{name: "p", steps: []func() (*contract.CompletionResponse, error){
		fail(cogerrors.KindNetwork),
		fail(cogerrors.KindTimeout),
		ok("recovered"),
	}}
	w := Wrap(raw, Config{RetryMax: 3, RetryBaseBackoff: time.Millisecond, RetryMaxBackoff: 2 * time.Millisecond, Timeout: time.Second, OverallTimeout: 5 * time.Second})

	resp, err := w.Query(context.Background(), contract.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Text())
	assert.EqualValues(t, 3, raw.calls)
}

func TestWrapped_NonTransientSurfacesImmediately(t *testing.T) {
	raw := &scriptedRaw{name: "p", steps: []func() (*contract.CompletionResponse, error){fail(cogerrors.KindAuthFailed)}}
	w := Wrap(raw, Config{RetryMax: 3, RetryBaseBackoff: time.Millisecond, RetryMaxBackoff: 2 * time.Millisecond, Timeout: time.Second, OverallTimeout: 5 * time.Second})

	_, err := w.Query(context.Background(), contract.CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, cogerrors.KindAuthFailed, cogerrors.KindOf(err))
	assert.EqualValues(t, 1, raw.calls, "non-transient errors must not be retried")
}

func TestWrapped_HealthDegradesAfterTwoFailuresThenRecovers(t *testing.T) {
	raw := &scriptedRaw{name: "p", steps: []func() (*contract.CompletionResponse, error){fail(cogerrors.KindServerError)}}
	w := Wrap(raw, Config{RetryMax: 0, RetryBaseBackoff: time.Millisecond, RetryMaxBackoff: 2 * time.Millisecond, Timeout: time.Second, OverallTimeout: 5 * time.Second})

	_, _ = w.Query(context.Background(), contract.CompletionRequest{})
	assert.Equal(t, HealthHealthy, w.Health(), "one failure should not degrade health")

	_, _ = w.Query(context.Background(), contract.CompletionRequest{})
	assert.Equal(t, HealthDegraded, w.Health(), "two failures within the window should degrade health")

	raw.steps = []func() (*contract.CompletionResponse, error){ok("back")}
	raw.calls = 0
	_, err := w.Query(context.Background(), contract.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, HealthHealthy, w.Health(), "a single success should recover health")
}

func TestWrapped_HealthBecomesUnhealthyAfterFourFailures(t *testing.T) {
	raw := &scriptedRaw{name: "p", steps: []func() (*contract.CompletionResponse, error){fail(cogerrors.KindServerError)}}
	w := Wrap(raw, Config{RetryMax: 0, RetryBaseBackoff: time.Millisecond, RetryMaxBackoff: 2 * time.Millisecond, Timeout: time.Second, OverallTimeout: 5 * time.Second})

	for i := 0; i < 4; i++ {
		_, _ = w.Query(context.Background(), contract.CompletionRequest{})
	}
	assert.Equal(t, HealthUnhealthy, w.Health())
}

func TestWrapped_ExhaustedRetriesInOneCallDegradeHealth(t *testing.T) {
	raw := &scriptedRaw{name: "p", steps: []func() (*contract.CompletionResponse, error){fail(cogerrors.KindTimeout)}}
	w := Wrap(raw, Config{RetryMax: 3, RetryBaseBackoff: time.Millisecond, RetryMaxBackoff: 2 * time.Millisecond, Timeout: time.Second, OverallTimeout: 5 * time.Second})

	_, err := w.Query(context.Background(), contract.CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, HealthDegraded, w.Health(), "one call whose internal retries are all exhausted should degrade, not merely register a single failure")
	assert.EqualValues(t, 4, raw.calls, "all configured attempts should have been used")
}

func TestWrapped_AtCapacityReturnsRateLimited(t *testing.T) {
	block := make(chan struct{})
	raw := &scriptedRaw{name: "p", steps: []func() (*contract.CompletionResponse, error){
		func() (*contract.CompletionResponse, error) {
			<-block
			return &contract.CompletionResponse{}, nil
		},
	}}
	w := Wrap(raw, Config{RetryMax: 0, Concurrency: 1, Timeout: time.Second, OverallTimeout: 5 * time.Second})

	done := make(chan struct{})
	go func() {
		_, _ = w.Query(context.Background(), contract.CompletionRequest{})
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)

	_, err := w.Query(context.Background(), contract.CompletionRequest{})
	require.Error(t, err)
	assert.Equal(t, cogerrors.KindRateLimited, cogerrors.KindOf(err))

	close(block)
	<-done
}
