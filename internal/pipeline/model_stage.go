package pipeline

import (
	"context"
	"fmt"

	"github.com/harunnryd/cogproc/internal/contract"
)

// Querier is the narrow operation a model-backed stage needs; satisfied
// by *fallback.Provider (the usual case) or a single *provider.Wrapped.
type Querier interface {
	Query(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
}

// ModelStage is a pipeline Stage that runs its input through a model via
// Querier, using a fixed system prompt and model/tuning parameters (spec
// §4.7/§6 preprocessing pipeline steps).
type ModelStage struct {
	name         string
	querier      Querier
	model        string
	systemPrompt string
	temperature  float64
	maxTokens    int
}

// NewModelStage builds a ModelStage named name, calling model through
// querier with the given system prompt and tuning.
func NewModelStage(name string, querier Querier, model, systemPrompt string, temperature float64, maxTokens int) *ModelStage {
	return &ModelStage{
		name:         name,
		querier:      querier,
		model:        model,
		systemPrompt: systemPrompt,
		temperature:  temperature,
		maxTokens:    maxTokens,
	}
}

func (m *ModelStage) Name() string { return m.name }

func (m *ModelStage) Run(ctx context.Context, input string) (string, int, error) {
	req := contract.CompletionRequest{
		ModelID:     m.model,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
		Messages: []contract.Message{
			{Role: "system", Content: m.systemPrompt},
			{Role: "user", Content: input},
		},
	}

	resp, err := m.querier.Query(ctx, req)
	if err != nil {
		return "", 0, fmt.Errorf("model stage %q: %w", m.name, err)
	}
	return resp.Text(), resp.Usage.Total, nil
}
