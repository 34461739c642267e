package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionResponse_TextReturnsFirstChoice(t *testing.T) {
	resp := &CompletionResponse{Choices: []Choice{
		{Message: Message{Role: "assistant", Content: "first"}},
		{Message: Message{Role: "assistant", Content: "second"}},
	}}
	assert.Equal(t, "first", resp.Text())
}

func TestCompletionResponse_TextEmptyWhenNoChoices(t *testing.T) {
	resp := &CompletionResponse{}
	assert.Equal(t, "", resp.Text())
}
