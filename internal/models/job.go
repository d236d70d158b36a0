package models

import "time"

// JobState is the lifecycle state of an ingestion job.
type JobState string

const (
	JobQueued     JobState = "queued"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// Terminal reports whether the state has no outgoing transitions.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransitionTo reports whether moving from s to next is a legal edge of
// the job state machine: queued -> processing -> {completed|failed}.
// Terminal states never change.
func (s JobState) CanTransitionTo(next JobState) bool {
	switch s {
	case JobQueued:
		// A queued job may fail directly (e.g. the ingestion queue is full).
		return next == JobProcessing || next == JobFailed
	case JobProcessing:
		// processing -> processing refreshes the detail between steps.
		return next == JobProcessing || next == JobCompleted || next == JobFailed
	default:
		return false
	}
}

// IngestionJob tracks one asynchronous document ingestion. Records are
// created on upload, mutated only by the ingestion pipeline that owns them,
// and kept for the lifetime of the process.
type IngestionJob struct {
	ID           string    `json:"job_id"`
	DocumentName string    `json:"document_name"`
	State        JobState  `json:"status"`
	Detail       string    `json:"detail,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
