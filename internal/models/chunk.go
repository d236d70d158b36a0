// Package models defines core data structures for chunks, ingestion jobs,
// queries, and metrics.
package models

import "fmt"

// Chunk is a bounded, overlapping window of source-document text used as
// the unit of retrieval. Chunks are immutable once created; IDs are 1-based
// and increase in offset order within a document.
type Chunk struct {
	ID             int    `json:"chunk_id"`
	Text           string `json:"text"`
	SourceDocument string `json:"source_document"`
	StartOffset    int    `json:"start_offset"`
}

// Key returns the stable vector-index identifier for the chunk
// (document name plus chunk ID).
func (c *Chunk) Key() string {
	return fmt.Sprintf("%s_%d", c.SourceDocument, c.ID)
}

// RetrievalResult is a retrieved chunk with its similarity score in [0,1],
// where 1.0 means identical vectors. Created per query, never persisted.
type RetrievalResult struct {
	Chunk           *Chunk  `json:"chunk"`
	SimilarityScore float64 `json:"similarity_score"`
}
