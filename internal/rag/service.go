// Package rag answers questions by retrieving relevant chunks from the
// vector store and prompting a language model with them as context.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/ragserver/internal/storage"
)

// DefaultTopK is how many chunks are retrieved when the caller does not say.
const DefaultTopK = 5

// NoContextAnswer is returned verbatim when retrieval finds nothing. It is
// a designed conversational fallback, not an error.
const NoContextAnswer = "I don't have enough information to answer that question."

// answerTemplate confines the model to the retrieved context.
const answerTemplate = `Answer the question based ONLY on the following context:
%s
Question: %s`

// Embedder produces the question's embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever finds the stored chunks nearest to an embedding.
type Retriever interface {
	Query(ctx context.Context, embedding []float32, limit int) ([]storage.SearchResult, error)
}

// Generator produces the model's answer for a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service is the query pipeline: embed question, retrieve context, prompt
// the model. Calls are synchronous and never retried.
type Service struct {
	embedder Embedder
	store    Retriever
	llm      Generator
	logger   *slog.Logger
}

// NewService wires a query pipeline from its collaborators.
func NewService(embedder Embedder, store Retriever, llm Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{embedder: embedder, store: store, llm: llm, logger: logger}
}

// Answer retrieves the top k chunks for the question and asks the model to
// answer from them alone. An empty question yields an empty answer with no
// external calls. When retrieval finds no documents the literal
// NoContextAnswer is returned.
func (s *Service) Answer(ctx context.Context, question string, k int) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("embed question: %w", err)
	}

	results, err := s.store.Query(ctx, embedding, k)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}
	if len(results) == 0 {
		s.logger.Info("no documents retrieved", "question", question)
		return NoContextAnswer, nil
	}

	documents := make([]string, len(results))
	for i, result := range results {
		documents[i] = result.Document
	}
	prompt := fmt.Sprintf(answerTemplate, strings.Join(documents, "\n"), question)

	s.logger.Debug("invoking model", "retrieved", len(results), "prompt_length", len(prompt))
	answer, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}
