// Package generator implements the Generator Client: text completion via
// an external chat completion service, with prompt templating left to callers.
package generator

import (
	"context"
	"fmt"

	"github.com/coursewise/ragcore/internal/errors"
	"github.com/sashabaranov/go-openai"
)

// Message carries a role ("system", "user", "assistant") and content.
type Message struct {
	Role    string
	Content string
}

// Generator completes chat messages.
type Generator interface {
	// Complete asks the chat completion service to complete messages. Fails
	// with GEN_FAILED on transport or API errors.
	Complete(ctx context.Context, messages []Message, temperature float64) (string, error)
}

// Config configures a Client.
type Config struct {
	Model   string
	BaseURL string
	APIKey  string
}

// Client wraps an OpenAI-compatible chat completion API.
type Client struct {
	model  string
	client *openai.Client
}

// New builds a Client the way the rest of this codebase constructs remote
// OpenAI-compatible clients: DefaultConfig plus an optional BaseURL override.
func New(cfg Config) (*Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("generator: model is required")
	}
	oaiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		model:  cfg.Model,
		client: openai.NewClientWithConfig(oaiCfg),
	}, nil
}

// Complete implements Generator.
func (c *Client) Complete(ctx context.Context, messages []Message, temperature float64) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: float32(temperature),
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.NewGenFailedError(fmt.Sprintf("generator: create chat completion: %v", err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.NewGenFailedError("generator: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
