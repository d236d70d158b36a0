// Package storage persists documents and their chunks. The vector index
// stores only chunk keys; chunk text lives here and is fetched when
// retrieval results are assembled.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrNotFound indicates the requested document or chunk does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines document and chunk persistence operations.
type Storage interface {
	// CreateDocument registers a document by name, replacing any previous
	// record of the same name.
	CreateDocument(ctx context.Context, name string) error
	// DeleteDocument removes a document and all of its chunks.
	DeleteDocument(ctx context.Context, name string) error

	// BatchCreateChunks stores chunks transactionally.
	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	// GetChunk returns the chunk with the given key, or ErrNotFound.
	GetChunk(ctx context.Context, key string) (*models.Chunk, error)
	// GetChunksByDocument returns a document's chunks in chunk-id order.
	GetChunksByDocument(ctx context.Context, name string) ([]*models.Chunk, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
