// Package gemini implements the Gemini Model Provider (spec §4.3),
// grounded on the teacher's model/providers/gemini/gemini.go content
// role-mapping.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/harunnryd/cogproc/internal/contract"
)

// Provider is a Gemini GenerateContent endpoint.
type Provider struct {
	client *genai.Client
}

// New constructs a Provider.
func New(ctx context.Context, apiKey string) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &Provider{client: client}, nil
}

// Name returns the provider's registry name.
func (p *Provider) Name() string { return "gemini" }

// Query issues one GenerateContent call (spec §4.3 Request/Response).
func (p *Provider) Query(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			continue
		case "assistant":
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}

	var systemInstruction *genai.Content
	for _, m := range req.Messages {
		if m.Role == "system" {
			systemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
			break
		}
	}

	temp := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:       &temp,
		SystemInstruction: systemInstruction,
	}
	if req.MaxTokens > 0 {
		maxTokens := int32(req.MaxTokens)
		cfg.MaxOutputTokens = maxTokens
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.ModelID, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}

	usage := contract.TokenUsage{}
	if resp.UsageMetadata != nil {
		usage = contract.TokenUsage{
			Prompt:     int(resp.UsageMetadata.PromptTokenCount),
			Completion: int(resp.UsageMetadata.CandidatesTokenCount),
			Total:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return &contract.CompletionResponse{
		Choices: []contract.Choice{{Message: contract.Message{Role: "assistant", Content: text}}},
		Usage:   usage,
		ModelID: req.ModelID,
	}, nil
}
