package rag

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/ragserver/internal/storage"
)

type stubEmbedder struct {
	calls int
	err   error
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.5, 0.5}, nil
}

type stubRetriever struct {
	results []storage.SearchResult
	err     error
	gotK    int
}

func (s *stubRetriever) Query(_ context.Context, _ []float32, limit int) ([]storage.SearchResult, error) {
	s.gotK = limit
	return s.results, s.err
}

type stubGenerator struct {
	answer    string
	err       error
	gotPrompt string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.gotPrompt = prompt
	return s.answer, s.err
}

func results(docs ...string) []storage.SearchResult {
	out := make([]storage.SearchResult, len(docs))
	for i, doc := range docs {
		out[i] = storage.SearchResult{ID: fmt.Sprintf("src_%d", i), Document: doc, Score: 0.9}
	}
	return out
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	embedder := &stubEmbedder{}
	svc := NewService(embedder, &stubRetriever{}, &stubGenerator{}, nil)

	for _, q := range []string{"", "   ", "\n"} {
		answer, err := svc.Answer(context.Background(), q, 5)
		require.NoError(t, err)
		assert.Empty(t, answer)
	}
	assert.Zero(t, embedder.calls, "empty question must not reach the embedder")
}

func TestAnswer_NoDocumentsFallback(t *testing.T) {
	svc := NewService(&stubEmbedder{}, &stubRetriever{}, &stubGenerator{answer: "unused"}, nil)

	answer, err := svc.Answer(context.Background(), "Who commands the Enterprise?", 5)
	require.NoError(t, err)
	assert.Equal(t, "I don't have enough information to answer that question.", answer)
}

func TestAnswer_PromptAssembly(t *testing.T) {
	retriever := &stubRetriever{results: results("Kirk commands the Enterprise.", "Spock is first officer.")}
	generator := &stubGenerator{answer: "Captain Kirk."}
	svc := NewService(&stubEmbedder{}, retriever, generator, nil)

	answer, err := svc.Answer(context.Background(), "Who commands the Enterprise?", 2)
	require.NoError(t, err)
	assert.Equal(t, "Captain Kirk.", answer)
	assert.Equal(t, 2, retriever.gotK)

	assert.True(t, strings.HasPrefix(generator.gotPrompt,
		"Answer the question based ONLY on the following context:\n"))
	assert.Contains(t, generator.gotPrompt,
		"Kirk commands the Enterprise.\nSpock is first officer.")
	assert.True(t, strings.HasSuffix(generator.gotPrompt,
		"Question: Who commands the Enterprise?"))
}

func TestAnswer_DefaultTopK(t *testing.T) {
	retriever := &stubRetriever{results: results("doc")}
	svc := NewService(&stubEmbedder{}, retriever, &stubGenerator{answer: "ok"}, nil)

	_, err := svc.Answer(context.Background(), "question", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, retriever.gotK)
}

func TestAnswer_ErrorsPropagate(t *testing.T) {
	t.Run("embed failure", func(t *testing.T) {
		svc := NewService(&stubEmbedder{err: fmt.Errorf("backend down")},
			&stubRetriever{}, &stubGenerator{}, nil)
		_, err := svc.Answer(context.Background(), "question", 5)
		assert.ErrorContains(t, err, "embed question")
	})

	t.Run("retrieval failure", func(t *testing.T) {
		svc := NewService(&stubEmbedder{},
			&stubRetriever{err: fmt.Errorf("store down")}, &stubGenerator{}, nil)
		_, err := svc.Answer(context.Background(), "question", 5)
		assert.ErrorContains(t, err, "retrieve context")
	})

	t.Run("generation failure", func(t *testing.T) {
		svc := NewService(&stubEmbedder{},
			&stubRetriever{results: results("doc")},
			&stubGenerator{err: fmt.Errorf("model down")}, nil)
		_, err := svc.Answer(context.Background(), "question", 5)
		assert.ErrorContains(t, err, "generate answer")
	})
}
