package ai

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// MockEmbedder is a deterministic embedder for tests: the same text always
// maps to the same unit vector, derived from a hash of the text's words, so
// overlapping texts land near each other.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a deterministic embedder of the given dimension.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic unit vector for text. Each word contributes
// a hashed component so that texts sharing words have similar embeddings.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := hashString(word)
		for i := 0; i < e.dimensions; i++ {
			emb[i] += float32(math.Sin(float64(h) * float64(i+1)))
		}
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := float32(1.0 / math.Sqrt(sum))
		for i := range emb {
			emb[i] *= norm
		}
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *MockEmbedder) Close() error {
	return nil
}

func hashString(s string) uint32 {
	// FNV-1a
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// MockGenerator is a scripted generator for tests.
type MockGenerator struct {
	// Answer is returned verbatim when set; otherwise a summary of the
	// excerpt count is produced.
	Answer string
	// Err, when set, is returned from Generate.
	Err error
	// Calls counts Generate invocations.
	Calls int
}

// Generate returns the scripted answer or error.
func (g *MockGenerator) Generate(ctx context.Context, question string, excerpts []string) (string, error) {
	g.Calls++
	if g.Err != nil {
		return "", g.Err
	}
	if g.Answer != "" {
		return g.Answer, nil
	}
	return fmt.Sprintf("answer from %d excerpts", len(excerpts)), nil
}

// Close is a no-op.
func (g *MockGenerator) Close() error {
	return nil
}
