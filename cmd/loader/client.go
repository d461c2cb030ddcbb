package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bull/ragserver/internal/extract"
	"github.com/bull/ragserver/internal/storage"
)

// apiClient talks to the running server's REST API so the loader never
// needs model or database credentials of its own.
type apiClient struct {
	http *resty.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second),
	}
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type addRequest struct {
	Embedding []float32        `json:"embedding"`
	Document  string           `json:"document"`
	Metadata  extract.Metadata `json:"metadata"`
	ID        string           `json:"id"`
}

type apiError struct {
	Error string `json:"error"`
}

// Embed requests an embedding for text from POST /api/embed.
func (c *apiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var result embedResponse
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(embedRequest{Text: text}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/api/embed")
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("embed request: %s: %s", resp.Status(), apiErr.Error)
	}
	return result.Embedding, nil
}

// Add persists one pre-embedded record through POST /api/add.
func (c *apiClient) Add(ctx context.Context, rec *storage.Record) error {
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(addRequest{
			Embedding: rec.Embedding,
			Document:  rec.Document,
			Metadata:  rec.Metadata,
			ID:        rec.ID,
		}).
		SetError(&apiErr).
		Post("/api/add")
	if err != nil {
		return fmt.Errorf("add request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("add request: %s: %s", resp.Status(), apiErr.Error)
	}
	return nil
}
