package models

import (
	"fmt"
	"strings"
)

const (
	minQuestionLength = 3
	maxQuestionLength = 500
)

// QueryRequest is a question posed against the ingested documents.
type QueryRequest struct {
	Question string `json:"question"`
	// TopK overrides the configured number of chunks to retrieve when > 0.
	TopK int `json:"top_k,omitempty"`
}

// Validate trims the question and checks its length bounds.
func (q *QueryRequest) Validate() error {
	q.Question = strings.TrimSpace(q.Question)
	if len(q.Question) < minQuestionLength {
		return fmt.Errorf("question must be at least %d characters", minQuestionLength)
	}
	if len(q.Question) > maxQuestionLength {
		return fmt.Errorf("question must be at most %d characters", maxQuestionLength)
	}
	return nil
}

// QueryResponse is the answer to a question together with its supporting
// evidence and the per-query metric.
type QueryResponse struct {
	Answer   string             `json:"answer"`
	Evidence []*RetrievalResult `json:"evidence"`
	Metrics  *QueryMetric       `json:"metrics"`
	// LowConfidence is set when every evidence score falls below the
	// configured relevance threshold: the index likely does not cover the
	// question. Surfaced as data, not as an error.
	LowConfidence bool `json:"low_confidence,omitempty"`
}

// UploadResponse acknowledges an accepted upload with the job to poll.
type UploadResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// JobStatusResponse is the poll view of an ingestion job.
type JobStatusResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}
