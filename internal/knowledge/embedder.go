package knowledge

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/pensieve-cli/pensieve/internal/log"
)

// embedBatchSize bounds documents per embedding request, matching the
// Gemini API's per-request limit.
const embedBatchSize = 100

// Embedder turns text into vectors. Consumers depend on this interface so
// tests can run without the Gemini API.
type Embedder interface {
	// EmbedTexts embeds texts in order; result[i] corresponds to texts[i].
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedText embeds a single text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the vector dimension this embedder produces.
	Dimension() int
}

// GeminiEmbedder embeds text through the Gemini embedding API via genkit.
type GeminiEmbedder struct {
	embedder ai.Embedder
	logger   log.Logger
}

// NewGeminiEmbedder creates an embedder for the given model name.
func NewGeminiEmbedder(g *genkit.Genkit, model string, logger log.Logger) *GeminiEmbedder {
	return &GeminiEmbedder{
		embedder: googlegenai.GoogleAIEmbedder(g, model),
		logger:   logger,
	}
}

// NewEmbedderWithClient wraps an existing ai.Embedder. Intended for tests.
func NewEmbedderWithClient(embedder ai.Embedder, logger log.Logger) *GeminiEmbedder {
	return &GeminiEmbedder{embedder: embedder, logger: logger}
}

// EmbedTexts implements Embedder. Requests are split into API-sized batches;
// a failed batch fails the whole call since partial embeddings cannot be
// paired back to their chunks safely.
func (e *GeminiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))

		docs := make([]*ai.Document, 0, end-start)
		for _, t := range texts[start:end] {
			docs = append(docs, ai.DocumentFromText(t, nil))
		}

		resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("%w: sent %d texts, got %d embeddings",
				ErrCountMismatch, end-start, len(resp.Embeddings))
		}
		for _, emb := range resp.Embeddings {
			out = append(out, emb.Embedding)
		}

		e.logger.Debug("embedded batch", "from", start, "to", end, "total", len(texts))
	}
	return out, nil
}

// EmbedText implements Embedder.
func (e *GeminiEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	embs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embs) != 1 {
		return nil, fmt.Errorf("%w: got %d embeddings for one text", ErrCountMismatch, len(embs))
	}
	return embs[0], nil
}

// Dimension implements Embedder.
func (e *GeminiEmbedder) Dimension() int { return EmbeddingDim }
