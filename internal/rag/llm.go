package rag

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/bull/ragserver/internal/embedding"
)

// DefaultChatModel is used when no model is configured.
const DefaultChatModel = "gpt-4o-mini"

// ChatGenerator generates answers through the chat-completions endpoint of
// an OpenAI-compatible backend.
type ChatGenerator struct {
	client *openai.Client
	model  string
}

// NewChatGenerator creates a generator sharing the embedding client's
// connection. An empty model selects DefaultChatModel.
func NewChatGenerator(client *embedding.Client, model string) *ChatGenerator {
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatGenerator{client: client.Client(), model: model}
}

// Model returns the configured chat model name.
func (g *ChatGenerator) Model() string { return g.model }

// Generate runs a single user-message completion and returns its text.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(g.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response from model %s", g.model)
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping verifies the model backend is reachable by listing models.
func (g *ChatGenerator) Ping(ctx context.Context) error {
	if _, err := g.client.Models.List(ctx); err != nil {
		return fmt.Errorf("llm backend unreachable: %w", err)
	}
	return nil
}
