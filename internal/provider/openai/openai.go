// Package openai implements an OpenAI-compatible chat-completions Model
// Provider (spec §4.3), grounded on the teacher's
// model/providers/openai/openai.go client wiring. The same client also
// backs any zai-compatible registry entry that points its BaseURL at a
// different OpenAI-compatible endpoint, mirroring the teacher's
// createProvider switch collapsing "openai" and "zai" onto one SDK.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/harunnryd/cogproc/internal/contract"
)

// Provider is an OpenAI-compatible chat-completions endpoint.
type Provider struct {
	client *openai.Client
	name   string
}

// New constructs a Provider. baseURL overrides the default OpenAI
// endpoint, used to point the same client at a zai/ollama-compatible
// gateway.
func New(name, apiKey, baseURL string) *Provider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if name == "" {
		name = "openai"
	}
	return &Provider{client: openai.NewClientWithConfig(cfg), name: name}
}

// Name returns the provider's registry name.
func (p *Provider) Name() string { return p.name }

// Query issues one chat-completion call (spec §4.3 Request/Response).
func (p *Provider) Query(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       req.ModelID,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	choice := resp.Choices[0]
	return &contract.CompletionResponse{
		Choices: []contract.Choice{{Message: contract.Message{Role: choice.Message.Role, Content: choice.Message.Content}}},
		Usage: contract.TokenUsage{
			Prompt:     resp.Usage.PromptTokens,
			Completion: resp.Usage.CompletionTokens,
			Total:      resp.Usage.TotalTokens,
		},
		ModelID: resp.Model,
	}, nil
}
