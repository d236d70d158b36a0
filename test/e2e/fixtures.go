// Package e2e exercises the whole stack: upload, asynchronous ingestion,
// question answering, and metrics, over a real HTTP server with
// deterministic AI stand-ins.
package e2e

import (
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/ai"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/jobs"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/retriever"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

const fixtureDimensions = 16

// newStack builds the full service wired with the mock embedder and
// generator and returns it running behind an httptest server.
func newStack(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.AI.Dimensions = fixtureDimensions
	cfg.RateLimit.UploadPerMinute = 0
	cfg.RateLimit.QueryPerMinute = 0

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "kotae.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	index, err := vector.NewMemoryIndex(cfg.AI.Dimensions)
	if err != nil {
		t.Fatalf("NewMemoryIndex: %v", err)
	}
	jobStore := jobs.NewMemoryStore()
	embedder := ai.NewMockEmbedder(cfg.AI.Dimensions)
	chunker, err := ingest.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	pipeline, err := ingest.NewPipeline(jobStore, store, index, embedder, extract.NewExtractor(), chunker, cfg.Ingest.Workers)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	t.Cleanup(pipeline.Close)

	recorder := metrics.NewAggregator(cfg.Metrics.RecentWindow)
	rt := retriever.New(index, store, embedder, &ai.MockGenerator{Answer: "generated from the excerpts"}, recorder,
		retriever.WithTopK(cfg.Retrieval.TopK),
		retriever.WithRelevanceThreshold(cfg.Retrieval.RelevanceThreshold))

	srv := server.NewServer(pipeline, jobStore, rt, store, index, recorder, cfg, zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

// corpusDocument builds a document of n generated words, with marker
// sentences spliced in at the given word offsets so retrieval has
// something distinctive to find.
func corpusDocument(n int, markers map[int]string) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("filler%d", i)
	}
	for offset, marker := range markers {
		for j, w := range strings.Fields(marker) {
			if offset+j < n {
				words[offset+j] = w
			}
		}
	}
	return strings.Join(words, " ")
}
