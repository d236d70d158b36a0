package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/hyperjump/kotae/pkg/utils"
)

// answerPromptTemplate instructs the model to answer strictly from the
// retrieved excerpts.
const answerPromptTemplate = `You are an expert assistant that answers questions based on provided document excerpts.

Use the following relevant excerpts to answer the question accurately and concisely.
If the answer cannot be found in the excerpts, say "I cannot find that information in the provided documents."

Relevant excerpts:
%s

Question: %s

Answer:`

// OpenAIEmbedder implements Embedder against an OpenAI-compatible
// embeddings API. Returned vectors are L2-normalized so inner product
// equals cosine similarity.
type OpenAIEmbedder struct {
	embedder   embeddings.Embedder
	dimensions int
}

// NewOpenAIEmbedder creates an embedder for the given endpoint and model.
// The token "none" is used for local services that skip authentication.
func NewOpenAIEmbedder(host, model string, dimensions int) (*OpenAIEmbedder, error) {
	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &OpenAIEmbedder{embedder: embedder, dimensions: dimensions}, nil
}

// Embed returns the normalized embedding of text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns normalized embeddings for texts, in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrEmbeddingUnavailable, len(vecs), len(texts))
	}
	for _, v := range vecs {
		utils.NormalizeL2(v)
	}
	return vecs, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the underlying client needs no cleanup.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

// OpenAIGenerator implements Generator against an OpenAI-compatible chat
// API.
type OpenAIGenerator struct {
	client llms.Model
}

// NewOpenAIGenerator creates a generator for the given endpoint and model.
func NewOpenAIGenerator(host, model string) (*OpenAIGenerator, error) {
	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken("none"),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create generation client: %w", err)
	}
	return &OpenAIGenerator{client: client}, nil
}

// Generate answers the question from the excerpts.
func (g *OpenAIGenerator) Generate(ctx context.Context, question string, excerpts []string) (string, error) {
	prompt := fmt.Sprintf(answerPromptTemplate, FormatExcerpts(excerpts), question)
	content := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}
	response, err := g.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: model returned no choices", ErrGenerationUnavailable)
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}

// Close is a no-op; the underlying client needs no cleanup.
func (g *OpenAIGenerator) Close() error {
	return nil
}

// FormatExcerpts renders excerpts as a numbered context block for the
// answer prompt.
func FormatExcerpts(excerpts []string) string {
	var b strings.Builder
	for i, e := range excerpts {
		fmt.Fprintf(&b, "[Excerpt %d]\n%s\n", i+1, e)
		if i < len(excerpts)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
