package retriever

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/ai"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

type fixture struct {
	retriever *Retriever
	index     *vector.MemoryIndex
	store     storage.Storage
	embedder  *ai.MockEmbedder
	generator *ai.MockGenerator
	recorder  *metrics.Aggregator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	index, err := vector.NewMemoryIndex(16)
	if err != nil {
		t.Fatalf("NewMemoryIndex: %v", err)
	}
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "kotae.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		index:     index,
		store:     store,
		embedder:  ai.NewMockEmbedder(16),
		generator: &ai.MockGenerator{Answer: "the warranty lasts two years"},
		recorder:  metrics.NewAggregator(metrics.DefaultRecentWindow),
	}
	f.retriever = New(index, store, f.embedder, f.generator, f.recorder, opts...)
	return f
}

// ingest stores and indexes chunks directly, bypassing the pipeline.
func (f *fixture) ingest(t *testing.T, document string, texts ...string) {
	t.Helper()
	ctx := context.Background()
	if err := f.store.CreateDocument(ctx, document); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	chunks := make([]*models.Chunk, len(texts))
	keys := make([]string, len(texts))
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		chunks[i] = &models.Chunk{ID: i + 1, Text: text, SourceDocument: document}
		keys[i] = chunks[i].Key()
		v, err := f.embedder.Embed(ctx, text)
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		vectors[i] = v
	}
	if err := f.store.BatchCreateChunks(ctx, chunks); err != nil {
		t.Fatalf("BatchCreateChunks: %v", err)
	}
	if err := f.index.Add(ctx, keys, vectors); err != nil {
		t.Fatalf("Add: %v", err)
	}
}

func TestAnswerReturnsEvidenceAndMetric(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "warranty.txt",
		"the warranty covers manufacturing defects for two years",
		"shipping within the EU takes three to five business days")

	resp, err := f.retriever.Answer(context.Background(), &models.QueryRequest{
		Question: "how long does the warranty cover defects",
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.Answer != "the warranty lasts two years" {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Evidence) != 2 {
		t.Fatalf("evidence count = %d, want 2", len(resp.Evidence))
	}
	// Shared words pull the warranty chunk to the top under the mock embedder.
	if !strings.Contains(resp.Evidence[0].Chunk.Text, "warranty") {
		t.Errorf("top evidence = %q, want the warranty chunk first", resp.Evidence[0].Chunk.Text)
	}
	for i := 1; i < len(resp.Evidence); i++ {
		if resp.Evidence[i].SimilarityScore > resp.Evidence[i-1].SimilarityScore {
			t.Errorf("evidence not ordered by score at %d", i)
		}
	}
	if resp.Metrics == nil {
		t.Fatal("metric missing from response")
	}
	if resp.Metrics.ChunksRetrieved != 2 {
		t.Errorf("ChunksRetrieved = %d, want 2", resp.Metrics.ChunksRetrieved)
	}
	if resp.Metrics.TotalLatencyMs < resp.Metrics.RetrievalLatencyMs {
		t.Error("total latency below retrieval latency")
	}

	summary := f.recorder.Summary()
	if summary.TotalQueries != 1 {
		t.Errorf("recorded %d queries, want 1", summary.TotalQueries)
	}
}

func TestAnswerEmptyIndex(t *testing.T) {
	f := newFixture(t)

	resp, err := f.retriever.Answer(context.Background(), &models.QueryRequest{Question: "anything at all"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(resp.Evidence) != 0 {
		t.Errorf("evidence count = %d, want 0", len(resp.Evidence))
	}
	if !strings.Contains(resp.Answer, "No documents") {
		t.Errorf("answer = %q", resp.Answer)
	}
	if f.generator.Calls != 0 {
		t.Errorf("generator called %d times with nothing to ground on", f.generator.Calls)
	}
	if f.recorder.Summary().TotalQueries != 1 {
		t.Error("empty-index query must still be recorded")
	}
}

func TestAnswerTruncatesEvidence(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("warranty terms and conditions apply ", 20) // well over 300 chars
	f.ingest(t, "legal.txt", long)

	resp, err := f.retriever.Answer(context.Background(), &models.QueryRequest{Question: "what warranty terms apply"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got := len(resp.Evidence[0].Chunk.Text); got > 300+len("...") {
		t.Errorf("evidence length = %d, want truncated to 300", got)
	}
	// The generator must have seen the full text, not the snippet.
	if f.generator.Calls != 1 {
		t.Fatalf("generator calls = %d", f.generator.Calls)
	}
}

func TestAnswerLowConfidence(t *testing.T) {
	f := newFixture(t, WithRelevanceThreshold(0.99))
	f.ingest(t, "doc.txt", "completely unrelated content about gardening")

	resp, err := f.retriever.Answer(context.Background(), &models.QueryRequest{Question: "quarterly revenue figures"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !resp.LowConfidence {
		t.Error("expected low-confidence flag with threshold 0.99")
	}
	if resp.Answer == "" {
		t.Error("low confidence must still produce an answer")
	}
}

func TestAnswerTopKOverride(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "doc.txt",
		"first chunk about warranty",
		"second chunk about warranty",
		"third chunk about warranty")

	resp, err := f.retriever.Answer(context.Background(), &models.QueryRequest{
		Question: "warranty details",
		TopK:     1,
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(resp.Evidence) != 1 {
		t.Errorf("evidence count = %d, want 1", len(resp.Evidence))
	}
}

func TestAnswerGeneratorFailure(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "doc.txt", "some indexed content")
	f.generator.Err = errors.New("model went away")

	_, err := f.retriever.Answer(context.Background(), &models.QueryRequest{Question: "what content is indexed"})
	if !errors.Is(err, ai.ErrGenerationUnavailable) {
		t.Errorf("err = %v, want ErrGenerationUnavailable", err)
	}
}

func TestAnswerClosedIndex(t *testing.T) {
	f := newFixture(t)
	f.index.Close()

	_, err := f.retriever.Answer(context.Background(), &models.QueryRequest{Question: "does this still work"})
	if !errors.Is(err, vector.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
}
