// Package contract defines the wire types shared by every model provider
// and by the orchestrator/engine layers that drive them.
package contract

// Message is one chat turn exchanged with a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the uniform request shape every Model Provider
// accepts, mirroring the OpenAI-compatible chat-completions body that all
// providers are reached through (spec §6 wire protocol).
type CompletionRequest struct {
	ModelID     string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	TimeoutMs   int       `json:"timeout_ms,omitempty"`
}

// TokenUsage reports prompt/completion/total token counts for one call.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// Choice wraps a single completion candidate's message.
type Choice struct {
	Message Message `json:"message"`
}

// CompletionResponse is the uniform response shape every Model Provider
// returns (spec §4.3).
type CompletionResponse struct {
	Choices   []Choice   `json:"choices"`
	Usage     TokenUsage `json:"usage"`
	ModelID   string     `json:"model_id"`
	LatencyMs int64      `json:"latency_ms"`
}

// Text returns the first choice's content, or empty if there are none.
func (r *CompletionResponse) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}
