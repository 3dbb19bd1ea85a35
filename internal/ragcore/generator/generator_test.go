package generator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_ReturnsFirstChoiceContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "the answer"}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{Model: "test-model", BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	answer, err := c.Complete(t.Context(), []Message{
		{Role: "system", Content: "you are helpful"},
		{Role: "user", Content: "hi"},
	}, 0.2)
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)
}

func TestComplete_NoChoicesIsGenFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{})
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{Model: "test-model", BaseURL: srv.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = c.Complete(t.Context(), []Message{{Role: "user", Content: "hi"}}, 0.2)
	require.Error(t, err)
}

func TestNew_RequiresModel(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestToOpenAIMessages(t *testing.T) {
	out := toOpenAIMessages([]Message{{Role: "user", Content: "hi"}})
	require.Len(t, out, 1)
	assert.Equal(t, "user", out[0].Role)
	assert.Equal(t, "hi", out[0].Content)
}
