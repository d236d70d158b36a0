package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/ai"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/jobs"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// ErrQueueFull indicates the ingestion worker pool is saturated. The
// upload should be retried later; no unbounded queueing.
var ErrQueueFull = errors.New("ingestion queue full")

const defaultStepTimeout = 60 * time.Second

// Pipeline runs document ingestion asynchronously: extract, chunk, embed,
// store, index, with job state tracking throughout. Each job is driven by
// exactly one worker, so each job record has a single writer.
type Pipeline struct {
	jobs        jobs.Store
	store       storage.Storage
	index       vector.Index
	embedder    ai.Embedder
	extractor   *extract.Extractor
	chunker     *Chunker
	pool        *ants.Pool
	stepTimeout time.Duration
	logger      *zap.Logger // optional; when set, logs pipeline events
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets a logger for pipeline events (job started, failed, etc.).
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithStepTimeout bounds each external-service call (extraction excluded;
// it is local CPU work). Default 60s.
func WithStepTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.stepTimeout = d
		}
	}
}

// NewPipeline creates an ingestion pipeline with a bounded, non-blocking
// worker pool of the given size. When all workers are busy, Enqueue fails
// with ErrQueueFull instead of queueing without bound.
func NewPipeline(
	jobStore jobs.Store,
	store storage.Storage,
	index vector.Index,
	embedder ai.Embedder,
	extractor *extract.Extractor,
	chunker *Chunker,
	workers int,
	opts ...PipelineOption,
) (*Pipeline, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	p := &Pipeline{
		jobs:        jobStore,
		store:       store,
		index:       index,
		embedder:    embedder,
		extractor:   extractor,
		chunker:     chunker,
		pool:        pool,
		stepTimeout: defaultStepTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Enqueue creates a job for the document and hands it to the worker pool,
// returning immediately. The caller observes progress only by polling the
// job. When the pool is saturated the job is marked failed and ErrQueueFull
// is returned together with the job id, so the rejection stays pollable.
func (p *Pipeline) Enqueue(documentName string, content []byte, ext string) (string, error) {
	jobID, err := p.jobs.Create(documentName)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	if err := p.pool.Submit(func() { p.process(jobID, documentName, content, ext) }); err != nil {
		_ = p.jobs.Transition(jobID, models.JobFailed, "ingestion queue full")
		if p.logger != nil {
			p.logger.Warn("ingestion rejected, pool saturated", zap.String("job_id", jobID), zap.String("document", documentName))
		}
		return jobID, ErrQueueFull
	}
	return jobID, nil
}

// process drives one job to a terminal state. Failures never propagate to
// the upload caller; they end up in the job detail.
func (p *Pipeline) process(jobID, documentName string, content []byte, ext string) {
	if err := p.jobs.Transition(jobID, models.JobProcessing, "extracting text"); err != nil {
		if p.logger != nil {
			p.logger.Error("job transition failed", zap.String("job_id", jobID), zap.Error(err))
		}
		return
	}
	if p.logger != nil {
		p.logger.Info("ingestion started", zap.String("job_id", jobID), zap.String("document", documentName))
	}

	text, err := p.extractor.Extract(content, ext)
	if err != nil {
		p.fail(jobID, documentName, err)
		return
	}
	chunks := p.chunker.Chunk(documentName, text)
	if len(chunks) == 0 {
		p.fail(jobID, documentName, errors.New("document contains no text"))
		return
	}
	_ = p.jobs.Transition(jobID, models.JobProcessing, fmt.Sprintf("created %d chunks, generating embeddings", len(chunks)))

	texts := make([]string, len(chunks))
	keys := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
		keys[i] = ch.Key()
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.stepTimeout)
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	cancel()
	if err != nil {
		p.fail(jobID, documentName, err)
		return
	}

	// Re-ingesting a document replaces its previous chunks everywhere.
	if err := p.removePrevious(documentName); err != nil {
		p.fail(jobID, documentName, err)
		return
	}

	ctx, cancel = context.WithTimeout(context.Background(), p.stepTimeout)
	defer cancel()
	if err := p.store.CreateDocument(ctx, documentName); err != nil {
		p.fail(jobID, documentName, fmt.Errorf("store document: %w", err))
		return
	}
	if err := p.store.BatchCreateChunks(ctx, chunks); err != nil {
		p.rollback(documentName, nil)
		p.fail(jobID, documentName, fmt.Errorf("store chunks: %w", err))
		return
	}
	if err := p.index.Add(ctx, keys, embeddings); err != nil {
		// No chunk of a failed job may stay retrievable.
		p.rollback(documentName, keys)
		p.fail(jobID, documentName, fmt.Errorf("index vectors: %w", err))
		return
	}

	_ = p.jobs.Transition(jobID, models.JobCompleted, fmt.Sprintf("successfully processed %d chunks", len(chunks)))
	if p.logger != nil {
		p.logger.Info("ingestion completed",
			zap.String("job_id", jobID),
			zap.String("document", documentName),
			zap.Int("chunks", len(chunks)))
	}
}

// removePrevious clears an earlier ingestion of the same document from the
// index and storage.
func (p *Pipeline) removePrevious(documentName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.stepTimeout)
	defer cancel()
	previous, err := p.store.GetChunksByDocument(ctx, documentName)
	if err != nil {
		return fmt.Errorf("load previous chunks: %w", err)
	}
	if len(previous) == 0 {
		return nil
	}
	keys := make([]string, len(previous))
	for i, ch := range previous {
		keys[i] = ch.Key()
	}
	if err := p.index.Remove(ctx, keys); err != nil {
		return fmt.Errorf("remove previous vectors: %w", err)
	}
	if err := p.store.DeleteDocument(ctx, documentName); err != nil {
		return fmt.Errorf("remove previous document: %w", err)
	}
	return nil
}

// rollback undoes partial writes of a failed ingestion. keys may be nil
// when vectors were never added. Rollback errors are logged, not surfaced;
// the job is failing already.
func (p *Pipeline) rollback(documentName string, keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.stepTimeout)
	defer cancel()
	if len(keys) > 0 {
		if err := p.index.Remove(ctx, keys); err != nil && p.logger != nil {
			p.logger.Error("rollback: remove vectors failed", zap.String("document", documentName), zap.Error(err))
		}
	}
	if err := p.store.DeleteDocument(ctx, documentName); err != nil && p.logger != nil {
		p.logger.Error("rollback: delete document failed", zap.String("document", documentName), zap.Error(err))
	}
}

func (p *Pipeline) fail(jobID, documentName string, cause error) {
	_ = p.jobs.Transition(jobID, models.JobFailed, cause.Error())
	if p.logger != nil {
		p.logger.Warn("ingestion failed",
			zap.String("job_id", jobID),
			zap.String("document", documentName),
			zap.Error(cause))
	}
}

// Close releases the worker pool. Running jobs finish; queued submissions
// are not accepted afterwards.
func (p *Pipeline) Close() {
	p.pool.Release()
}
