package thinking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunnryd/cogproc/internal/contract"
	"github.com/harunnryd/cogproc/internal/optimizer"
)

type stubQuerier struct {
	responses []string
	calls     int
	err       error
}

func (q *stubQuerier) Query(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	if q.err != nil {
		return nil, q.err
	}
	idx := q.calls
	if idx >= len(q.responses) {
		idx = len(q.responses) - 1
	}
	q.calls++
	return &contract.CompletionResponse{
		Choices: []contract.Choice{{Message: contract.Message{Content: q.responses[idx]}}},
		Usage:   contract.TokenUsage{Prompt: 10, Completion: 10, Total: 20},
	}, nil
}

func newTestEngine(q Querier) *Engine {
	return NewEngine(q, optimizer.New(), nil, 6, 500, 4, 2*time.Second)
}

func TestEngine_Process_EmptyProblem(t *testing.T) {
	engine := newTestEngine(&stubQuerier{})
	result := engine.Process(context.Background(), "   ", Options{})
	require.NoError(t, result.Err)
	assert.Equal(t, PhaseCompleted, result.Phase)
	assert.Empty(t, result.Steps)
	assert.Zero(t, result.TokenUsage.Total)
}

func TestEngine_Process_SingleStepDecision(t *testing.T) {
	q := &stubQuerier{responses: []string{
		`{"description":"decide","reasoning":"simple decision reached","shouldContinue":false,"confidence":0.9}`,
	}}
	engine := newTestEngine(q)
	result := engine.Process(context.Background(), "quick decision needed", Options{Strategy: "minimal", MaxSteps: 3})

	require.NoError(t, result.Err)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, PhaseCompleted, result.Phase)
	assert.Equal(t, 20, result.TokenUsage.Total)
}

func TestEngine_Process_TwoStepCoherentChain(t *testing.T) {
	q := &stubQuerier{responses: []string{
		`{"description":"analysis","reasoning":"the cache evicts entries by LRU","confidence":0.6}`,
		`{"description":"approach","reasoning":"the cache also tracks entries by TTL","shouldContinue":false,"confidence":0.8}`,
	}}
	engine := newTestEngine(q)
	result := engine.Process(context.Background(), "design the cache eviction policy", Options{Strategy: "minimal", MaxSteps: 5})

	require.NoError(t, result.Err)
	require.Len(t, result.Steps, 2)
	assert.Greater(t, result.Steps[1].Metrics.Coherence, 0.0)
	assert.Equal(t, PhaseCompleted, result.Phase)
}

func TestEngine_Process_ProviderFailureFoldsIntoResult(t *testing.T) {
	q := &stubQuerier{err: errors.New("boom")}
	engine := newTestEngine(q)
	result := engine.Process(context.Background(), "anything", Options{Strategy: "minimal"})

	require.Error(t, result.Err)
	assert.True(t, result.Partial)
	assert.Equal(t, PhaseError, result.Phase)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, StepError, result.Steps[0].Status)
}

func TestEngine_Process_RespectsMaxSteps(t *testing.T) {
	q := &stubQuerier{responses: []string{
		`{"description":"step","reasoning":"keeps going","confidence":0.5}`,
	}}
	engine := newTestEngine(q)
	result := engine.Process(context.Background(), "open ended exploration", Options{Strategy: "chain_of_thought", MaxSteps: 2})

	assert.LessOrEqual(t, len(result.Steps), 2)
}

func TestEngine_Process_CanceledContext(t *testing.T) {
	q := &stubQuerier{responses: []string{
		`{"description":"step","reasoning":"keeps going","confidence":0.5}`,
	}}
	engine := newTestEngine(q)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := engine.Process(ctx, "some problem", Options{Strategy: "chain_of_thought", MaxSteps: 5})
	require.Error(t, result.Err)
	assert.True(t, result.Partial)
}

func TestSelectStrategyKind(t *testing.T) {
	cases := map[string]string{
		"come up with a strategy for growth":         "strategic",
		"compare these two alternatives":             "tree_of_thoughts",
		"give me a quick answer":                     "minimal",
		"design the system architecture":             "standard",
		"what happens if we add more load":           "chain_of_thought",
	}
	for problem, want := range cases {
		assert.Equal(t, want, selectStrategyKind(problem), problem)
	}
}

func TestApplyAnalysis_ShouldContinueFalseStopsStep(t *testing.T) {
	cont := false
	step := &Step{}
	applyAnalysis(step, StepAnalysis{ShouldContinue: &cont})
	assert.True(t, step.ShouldStop)
	assert.Equal(t, StepCompleted, step.Status)
}

func TestApplyAnalysis_ClampsOutOfRangeConfidence(t *testing.T) {
	over := 1.5
	step := &Step{}
	applyAnalysis(step, StepAnalysis{Confidence: &over})
	assert.Equal(t, 1.0, step.Confidence)

	under := -0.3
	applyAnalysis(step, StepAnalysis{Confidence: &under})
	assert.Equal(t, 0.0, step.Confidence)
}

func TestEngine_Process_ParseFailureTerminatesWithErrorStep(t *testing.T) {
	q := &stubQuerier{responses: []string{"   "}}
	engine := newTestEngine(q)

	result := engine.Process(context.Background(), "some problem", Options{Strategy: "chain_of_thought", MaxSteps: 5})
	require.Error(t, result.Err)
	assert.True(t, result.Partial)
	require.NotEmpty(t, result.Steps)

	last := result.Steps[len(result.Steps)-1]
	assert.Equal(t, StepError, last.Status)
	assert.Zero(t, last.Confidence)
	assert.True(t, last.ShouldStop)
	assert.Contains(t, last.Challenges, "model response was not well-formed JSON")
}
