// Package retriever answers questions over the ingested documents: embed
// the question, find the most similar chunks, generate an answer grounded
// on them, and record the latency breakdown.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/ai"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

const (
	// DefaultTopK is the number of chunks retrieved when the request does
	// not ask for a specific count.
	DefaultTopK = 5

	// DefaultRelevanceThreshold marks answers as low-confidence when every
	// retrieved chunk scores below it.
	DefaultRelevanceThreshold = 0.5

	// evidenceSnippetLength bounds chunk text in responses; full text stays
	// in storage.
	evidenceSnippetLength = 300

	noDocumentsAnswer = "No documents have been ingested yet. Upload a document before asking questions."
)

// Retriever joins the vector index, chunk storage, and the AI services
// into the question-answering path. Safe for concurrent use.
type Retriever struct {
	index     vector.Index
	store     storage.Storage
	embedder  ai.Embedder
	generator ai.Generator
	recorder  *metrics.Aggregator
	topK      int
	threshold float64
	logger    *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithTopK sets the default number of chunks to retrieve.
func WithTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithRelevanceThreshold sets the score below which evidence does not
// count as relevant.
func WithRelevanceThreshold(threshold float64) Option {
	return func(r *Retriever) { r.threshold = threshold }
}

// WithLogger sets a logger for per-query events.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// New creates a Retriever. recorder may be nil to disable metrics.
func New(index vector.Index, store storage.Storage, embedder ai.Embedder, generator ai.Generator, recorder *metrics.Aggregator, opts ...Option) *Retriever {
	r := &Retriever{
		index:     index,
		store:     store,
		embedder:  embedder,
		generator: generator,
		recorder:  recorder,
		topK:      DefaultTopK,
		threshold: DefaultRelevanceThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Answer runs the full query path for an already validated request.
// An empty index is not an error: the response says so in the answer and
// carries no evidence.
func (r *Retriever) Answer(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	start := time.Now()

	topK := r.topK
	if req.TopK > 0 {
		topK = req.TopK
	}

	evidence, err := r.retrieve(ctx, req.Question, topK)
	if err != nil {
		return nil, err
	}
	retrievalMs := float64(time.Since(start).Microseconds()) / 1000

	var answer string
	lowConfidence := false
	generationStart := time.Now()
	if len(evidence) == 0 {
		answer = noDocumentsAnswer
	} else {
		lowConfidence = r.allBelowThreshold(evidence)
		excerpts := make([]string, len(evidence))
		for i, res := range evidence {
			excerpts[i] = res.Chunk.Text
		}
		answer, err = r.generator.Generate(ctx, req.Question, excerpts)
		if err != nil {
			if errors.Is(err, ai.ErrGenerationUnavailable) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ai.ErrGenerationUnavailable, err)
		}
	}
	generationMs := float64(time.Since(generationStart).Microseconds()) / 1000

	for _, res := range evidence {
		res.Chunk.Text = utils.Truncate(res.Chunk.Text, evidenceSnippetLength)
	}

	metric := &models.QueryMetric{
		Question:            req.Question,
		TotalLatencyMs:      float64(time.Since(start).Microseconds()) / 1000,
		RetrievalLatencyMs:  retrievalMs,
		GenerationLatencyMs: generationMs,
		ChunksRetrieved:     len(evidence),
		Timestamp:           time.Now().UTC(),
	}
	if r.recorder != nil {
		r.recorder.Record(metric)
	}
	if r.logger != nil {
		r.logger.Info("query answered",
			zap.Float64("total_ms", metric.TotalLatencyMs),
			zap.Float64("retrieval_ms", metric.RetrievalLatencyMs),
			zap.Float64("generation_ms", metric.GenerationLatencyMs),
			zap.Int("chunks", metric.ChunksRetrieved),
			zap.Bool("low_confidence", lowConfidence))
	}

	return &models.QueryResponse{
		Answer:        answer,
		Evidence:      evidence,
		Metrics:       metric,
		LowConfidence: lowConfidence,
	}, nil
}

// retrieve embeds the question and resolves the top index hits back into
// chunks. Hits whose chunk vanished from storage are skipped, not fatal.
func (r *Retriever) retrieve(ctx context.Context, question string, topK int) ([]*models.RetrievalResult, error) {
	embedding, err := r.embedder.Embed(ctx, question)
	if err != nil {
		if errors.Is(err, ai.ErrEmbeddingUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ai.ErrEmbeddingUnavailable, err)
	}

	hits, err := r.index.Search(ctx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]*models.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		chunk, err := r.store.GetChunk(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				if r.logger != nil {
					r.logger.Warn("indexed chunk missing from storage", zap.String("key", hit.ID))
				}
				continue
			}
			return nil, fmt.Errorf("load chunk %s: %w", hit.ID, err)
		}
		results = append(results, &models.RetrievalResult{
			Chunk:           chunk,
			SimilarityScore: hit.Score,
		})
	}
	return results, nil
}

func (r *Retriever) allBelowThreshold(evidence []*models.RetrievalResult) bool {
	for _, res := range evidence {
		if res.SimilarityScore >= r.threshold {
			return false
		}
	}
	return true
}
