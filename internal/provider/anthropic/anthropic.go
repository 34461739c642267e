// Package anthropic implements the Anthropic Model Provider (spec §4.3),
// grounded on the teacher's model/providers/anthropic/anthropic.go
// message-construction idiom.
package anthropic

import (
	"context"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/harunnryd/cogproc/internal/contract"
)

// Provider is an Anthropic Messages API endpoint.
type Provider struct {
	client anthropic.Client
}

// New constructs a Provider.
func New(apiKey string) *Provider {
	return &Provider{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

// Name returns the provider's registry name.
func (p *Provider) Name() string { return "anthropic" }

// Query issues one Messages.New call, collapsing the returned content
// blocks into plain text (spec §4.3 Request/Response).
func (p *Provider) Query(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	var system string
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	modelName := req.ModelID
	if modelName == "" {
		modelName = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var content string
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content += text.Text
		}
	}

	return &contract.CompletionResponse{
		Choices: []contract.Choice{{Message: contract.Message{Role: "assistant", Content: content}}},
		Usage: contract.TokenUsage{
			Prompt:     int(msg.Usage.InputTokens),
			Completion: int(msg.Usage.OutputTokens),
			Total:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
		ModelID: string(msg.Model),
	}, nil
}
