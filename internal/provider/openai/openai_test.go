package openai

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"context"

	"github.com/harunnryd/cogproc/internal/contract"
)

func TestProvider_Query_ParsesChoicesAndUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index":0,"message":{"role":"assistant","content":"hello there"},"finish_reason":"stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`)
	}))
	defer server.Close()

	p := New("openai", "test-key", server.URL)
	resp, err := p.Query(context.Background(), contract.CompletionRequest{
		ModelID:  "gpt-4o-mini",
		Messages: []contract.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Text())
	assert.Equal(t, 16, resp.Usage.Total)
}

func TestProvider_Query_SurfacesTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	}))
	defer server.Close()

	p := New("openai", "test-key", server.URL)
	_, err := p.Query(context.Background(), contract.CompletionRequest{
		ModelID:  "gpt-4o-mini",
		Messages: []contract.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
}

func TestNew_DefaultsNameToOpenAI(t *testing.T) {
	p := New("", "key", "")
	assert.Equal(t, "openai", p.Name())
}
