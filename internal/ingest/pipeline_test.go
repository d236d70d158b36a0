package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/ai"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/jobs"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

func newTestPipeline(t *testing.T, workers int, index vector.Index) (*Pipeline, jobs.Store, storage.Storage) {
	t.Helper()

	jobStore := jobs.NewMemoryStore()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "kotae.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if index == nil {
		index, err = vector.NewMemoryIndex(16)
		if err != nil {
			t.Fatalf("NewMemoryIndex: %v", err)
		}
	}

	chunker, err := NewChunker(500, 50)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	p, err := NewPipeline(jobStore, store, index, ai.NewMockEmbedder(16), extract.NewExtractor(), chunker, workers)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	t.Cleanup(p.Close)
	return p, jobStore, store
}

func waitTerminal(t *testing.T, jobStore jobs.Store, jobID string) *models.IngestionJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := jobStore.Get(jobID)
		if err != nil {
			t.Fatalf("Get(%s): %v", jobID, err)
		}
		if job.State.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", jobID)
	return nil
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(parts, " ")
}

func TestPipelineIngestsDocument(t *testing.T) {
	index, _ := vector.NewMemoryIndex(16)
	p, jobStore, store := newTestPipeline(t, 2, index)

	// 600 words with size 500 / overlap 50 yield two chunks.
	jobID, err := p.Enqueue("manual.txt", []byte(words(600)), ".txt")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job := waitTerminal(t, jobStore, jobID)
	if job.State != models.JobCompleted {
		t.Fatalf("state = %s (%s), want %s", job.State, job.Detail, models.JobCompleted)
	}
	if job.Detail != "successfully processed 2 chunks" {
		t.Errorf("detail = %q", job.Detail)
	}
	if index.Size() != 2 {
		t.Errorf("index size = %d, want 2", index.Size())
	}

	chunks, err := store.GetChunksByDocument(context.Background(), "manual.txt")
	if err != nil {
		t.Fatalf("GetChunksByDocument: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("stored %d chunks, want 2", len(chunks))
	}
	if chunks[1].StartOffset != 450 {
		t.Errorf("second chunk offset = %d, want 450", chunks[1].StartOffset)
	}
}

func TestPipelineFailsUnsupportedFormat(t *testing.T) {
	p, jobStore, _ := newTestPipeline(t, 1, nil)

	jobID, err := p.Enqueue("image.xyz", []byte("binary"), ".xyz")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job := waitTerminal(t, jobStore, jobID)
	if job.State != models.JobFailed {
		t.Fatalf("state = %s, want %s", job.State, models.JobFailed)
	}
	if !strings.Contains(job.Detail, "unsupported") {
		t.Errorf("detail = %q, want mention of unsupported format", job.Detail)
	}
}

func TestPipelineFailsEmptyDocument(t *testing.T) {
	p, jobStore, _ := newTestPipeline(t, 1, nil)

	jobID, err := p.Enqueue("empty.txt", []byte("   \n\t  "), ".txt")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	job := waitTerminal(t, jobStore, jobID)
	if job.State != models.JobFailed {
		t.Fatalf("state = %s, want %s", job.State, models.JobFailed)
	}
}

// blockingEmbedder parks EmbedBatch until released, holding its worker busy.
type blockingEmbedder struct {
	*ai.MockEmbedder
	entered chan struct{}
	release chan struct{}
}

func (e *blockingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	close(e.entered)
	<-e.release
	return e.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestPipelineQueueFull(t *testing.T) {
	jobStore := jobs.NewMemoryStore()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "kotae.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	defer store.Close()
	index, _ := vector.NewMemoryIndex(16)
	chunker, _ := NewChunker(500, 50)

	embedder := &blockingEmbedder{
		MockEmbedder: ai.NewMockEmbedder(16),
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	p, err := NewPipeline(jobStore, store, index, embedder, extract.NewExtractor(), chunker, 1)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	defer p.Close()

	firstID, err := p.Enqueue("first.txt", []byte("some document text here"), ".txt")
	if err != nil {
		t.Fatalf("Enqueue first: %v", err)
	}
	<-embedder.entered // the single worker is now occupied

	secondID, err := p.Enqueue("second.txt", []byte("more document text"), ".txt")
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Enqueue second: err = %v, want ErrQueueFull", err)
	}
	if secondID == "" {
		t.Fatal("rejected enqueue must still return a job id")
	}
	job, err := jobStore.Get(secondID)
	if err != nil {
		t.Fatalf("Get(second): %v", err)
	}
	if job.State != models.JobFailed || job.Detail != "ingestion queue full" {
		t.Errorf("rejected job: state = %s, detail = %q", job.State, job.Detail)
	}

	close(embedder.release)
	if job := waitTerminal(t, jobStore, firstID); job.State != models.JobCompleted {
		t.Errorf("first job: state = %s (%s)", job.State, job.Detail)
	}
}

func TestPipelineReingestReplacesDocument(t *testing.T) {
	index, _ := vector.NewMemoryIndex(16)
	p, jobStore, store := newTestPipeline(t, 1, index)

	first, err := p.Enqueue("notes.txt", []byte(words(600)), ".txt")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waitTerminal(t, jobStore, first)

	second, err := p.Enqueue("notes.txt", []byte("a short replacement document"), ".txt")
	if err != nil {
		t.Fatalf("Enqueue replacement: %v", err)
	}
	job := waitTerminal(t, jobStore, second)
	if job.State != models.JobCompleted {
		t.Fatalf("replacement: state = %s (%s)", job.State, job.Detail)
	}

	if index.Size() != 1 {
		t.Errorf("index size = %d after re-ingest, want 1", index.Size())
	}
	chunks, err := store.GetChunksByDocument(context.Background(), "notes.txt")
	if err != nil {
		t.Fatalf("GetChunksByDocument: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("stored %d chunks after re-ingest, want 1", len(chunks))
	}
	if chunks[0].Text != "a short replacement document" {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
}

// failingIndex rejects Add, forcing the rollback path.
type failingIndex struct {
	vector.Index
}

func (f *failingIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	return errors.New("index write refused")
}

func TestPipelineRollsBackOnIndexFailure(t *testing.T) {
	inner, _ := vector.NewMemoryIndex(16)
	p, jobStore, store := newTestPipeline(t, 1, &failingIndex{Index: inner})

	jobID, err := p.Enqueue("doomed.txt", []byte("this ingestion will not stick"), ".txt")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	job := waitTerminal(t, jobStore, jobID)
	if job.State != models.JobFailed {
		t.Fatalf("state = %s, want %s", job.State, models.JobFailed)
	}

	// Nothing of the failed job may remain retrievable.
	chunks, err := store.GetChunksByDocument(context.Background(), "doomed.txt")
	if err != nil {
		t.Fatalf("GetChunksByDocument: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("found %d chunks of a failed ingestion", len(chunks))
	}
	if inner.Size() != 0 {
		t.Errorf("index size = %d after rollback, want 0", inner.Size())
	}
}
