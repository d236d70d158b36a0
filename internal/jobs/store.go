// Package jobs tracks ingestion job state. Each job record has exactly one
// concurrent writer (the pipeline run that owns it); readers may observe any
// committed state.
package jobs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/models"
)

var (
	// ErrNotFound indicates the job id is unknown to the store.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidTransition indicates an attempt to move a job along an edge
	// the state machine does not allow. The record is left unchanged.
	ErrInvalidTransition = errors.New("invalid job state transition")
)

// Store tracks ingestion jobs. Implementations must be safe for concurrent
// use and must enforce the monotonic state machine on Transition.
type Store interface {
	// Create allocates a fresh job in state queued and returns its id.
	Create(documentName string) (string, error)
	// Get returns a snapshot of the job, or ErrNotFound.
	Get(id string) (*models.IngestionJob, error)
	// Transition moves the job to next with the given detail, or returns
	// ErrInvalidTransition (record unchanged) / ErrNotFound.
	Transition(id string, next models.JobState, detail string) error
}

// MemoryStore is the in-process Store. Records live for the process
// lifetime; durability is an explicitly deferred concern.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.IngestionJob
}

// NewMemoryStore returns an empty in-memory job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*models.IngestionJob)}
}

// Create allocates a fresh queued job and returns its id.
func (s *MemoryStore) Create(documentName string) (string, error) {
	job := &models.IngestionJob{
		ID:           uuid.New().String(),
		DocumentName: documentName,
		State:        models.JobQueued,
		Detail:       "queued for processing",
		CreatedAt:    time.Now(),
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job.ID, nil
}

// Get returns a copy of the job so callers never share the mutable record.
func (s *MemoryStore) Get(id string) (*models.IngestionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// Transition applies a state change, enforcing the monotonic machine.
func (s *MemoryStore) Transition(id string, next models.JobState, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !job.State.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.State, next)
	}
	job.State = next
	job.Detail = detail
	return nil
}
