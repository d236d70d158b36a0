// Package ai provides the embedding and answer-generation collaborators.
// Both are opaque capabilities consumed through narrow interfaces; the
// production implementations talk to an OpenAI-compatible HTTP service
// (Ollama, LocalAI, vLLM, ...).
package ai

import (
	"context"
	"errors"
)

var (
	// ErrEmbeddingUnavailable indicates the embedding service failed or
	// could not be reached. Retryable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable indicates the generative model failed or
	// could not be reached. Retryable.
	ErrGenerationUnavailable = errors.New("generation service unavailable")
)

// Embedder produces fixed-length vector embeddings for text.
// Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Generator produces a natural-language answer to a question from the
// given document excerpts. Implementations must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, question string, excerpts []string) (string, error)
	Close() error
}
