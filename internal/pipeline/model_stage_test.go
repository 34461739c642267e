package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harunnryd/cogproc/internal/contract"
)

type stubQuerier struct {
	resp *contract.CompletionResponse
	err  error
	got  contract.CompletionRequest
}

func (s *stubQuerier) Query(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	s.got = req
	return s.resp, s.err
}

func TestModelStage_RunBuildsRequestAndReturnsText(t *testing.T) {
	q := &stubQuerier{resp: &contract.CompletionResponse{
		Choices: []contract.Choice{{Message: contract.Message{Content: "cleaned output"}}},
		Usage:   contract.TokenUsage{Total: 42},
	}}
	stage := NewModelStage("clean", q, "gpt-test", "you clean input", 0.2, 256)

	out, tokens, err := stage.Run(context.Background(), "raw input")
	require.NoError(t, err)
	assert.Equal(t, "cleaned output", out)
	assert.Equal(t, 42, tokens)

	assert.Equal(t, "gpt-test", q.got.ModelID)
	assert.Equal(t, "you clean input", q.got.Messages[0].Content)
	assert.Equal(t, "raw input", q.got.Messages[1].Content)
}

func TestModelStage_RunWrapsQuerierError(t *testing.T) {
	q := &stubQuerier{err: errors.New("provider down")}
	stage := NewModelStage("enrich", q, "gpt-test", "system", 0, 0)

	_, _, err := stage.Run(context.Background(), "input")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enrich")
	assert.Contains(t, err.Error(), "provider down")
}

func TestModelStage_Name(t *testing.T) {
	stage := NewModelStage("summarize", &stubQuerier{}, "m", "s", 0, 0)
	assert.Equal(t, "summarize", stage.Name())
}
