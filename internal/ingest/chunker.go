// Package ingest turns uploaded documents into indexed chunks: chunking,
// embedding, and the asynchronous pipeline driving job state.
package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrInvalidChunking indicates chunk size/overlap outside the allowed
// range. Fatal at startup, never per request.
var ErrInvalidChunking = errors.New("invalid chunking configuration")

// Chunker splits text into overlapping fixed-size word windows. Output is a
// pure function of (text, size, overlap): chunk ids, offsets, and contents
// are fully deterministic.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap, both
// in words. Requires 0 <= overlap < size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0,%d), got %d", ErrInvalidChunking, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits text on whitespace and emits windows advancing by
// size-overlap words. The final window is truncated to the remaining words;
// a window fully contained in the previous one is never emitted, so the
// loop stops at the first window covering the last word. Chunk ids are
// 1-based and increase in offset order. Empty text yields no chunks.
func (c *Chunker) Chunk(sourceDocument, text string) []*models.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := c.size - c.overlap
	chunks := make([]*models.Chunk, 0, (len(words)+step-1)/step)
	for i := 0; ; i += step {
		end := i + c.size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, &models.Chunk{
			ID:             len(chunks) + 1,
			Text:           strings.Join(words[i:end], " "),
			SourceDocument: sourceDocument,
			StartOffset:    i,
		})
		if end >= len(words) {
			break
		}
	}
	return chunks
}
