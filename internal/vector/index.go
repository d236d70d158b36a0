// Package vector provides the similarity index that backs retrieval.
package vector

import (
	"context"
	"errors"
)

// ErrStoreUnavailable indicates a hard fault of the underlying vector store
// (connection or storage failure). An empty or unpopulated index is not a
// fault: Search returns no results in that case.
var ErrStoreUnavailable = errors.New("vector store unavailable")

// Index stores chunk embeddings and answers similarity queries.
// Implementations must serialize mutations while allowing concurrent reads.
type Index interface {
	// Add appends vectors under the given ids, preserving call order.
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns up to k hits ordered by non-increasing similarity score,
	// normalized to [0,1]. An empty index yields an empty result.
	Search(ctx context.Context, query []float32, k int) ([]*Result, error)
	// Remove deletes vectors by id; unknown ids are ignored.
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is a single similarity hit. ID is the chunk key.
type Result struct {
	ID    string
	Score float64
}
