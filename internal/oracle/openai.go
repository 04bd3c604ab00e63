// Package oracle implements the text-classification capability on top of the
// OpenAI chat-completion API.
package oracle

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Config controls the oracle client.
type Config struct {
	APIKey string
	Model  string
}

// Client implements watch.Oracle using the OpenAI API.
type Client struct {
	api   *openai.Client
	model string
}

// New constructs a Client. The API key must be non-empty; callers treat a
// missing credential as a dormant-classifier condition, not a process error.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	return &Client{
		api:   openai.NewClient(cfg.APIKey),
		model: cfg.Model,
	}, nil
}

// Complete sends the system and user prompts and returns the free-text reply.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("oracle completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("oracle completion: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
