package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps an OpenAI-compatible API client. With a custom base URL it
// talks to local backends (Ollama's /v1 endpoint) using the same wire
// protocol; the chat side of the client drives answer generation.
type Client struct {
	client *openai.Client
}

// NewClient creates a client for the given endpoint. apiKey may be empty
// when baseURL points at a local backend that ignores authentication; with
// the default OpenAI endpoint a key is required.
func NewClient(baseURL, apiKey string) (*Client, error) {
	var opts []option.RequestOption
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
		if apiKey == "" {
			// The SDK requires a bearer token even for backends that
			// never check it.
			apiKey = "unused"
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("embedding: OPENAI_API_KEY not set and no LLM_BASE_URL configured")
	}
	opts = append(opts, option.WithAPIKey(apiKey))

	client := openai.NewClient(opts...)
	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for chat completions.
func (c *Client) Client() *openai.Client {
	return c.client
}
