package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"

	"github.com/pensieve-cli/pensieve/internal/log"
)

// mockAIEmbedder implements ai.Embedder without calling the Gemini API.
type mockAIEmbedder struct {
	embedErr   error
	shortBy    int // return fewer embeddings than requested
	batchSizes []int
}

func (m *mockAIEmbedder) Name() string { return "mock-embedder" }

func (m *mockAIEmbedder) Register(_ api.Registry) {}

func (m *mockAIEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.batchSizes = append(m.batchSizes, len(req.Input))

	n := len(req.Input) - m.shortBy
	resp := &ai.EmbedResponse{}
	for i := 0; i < n; i++ {
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: make([]float32, EmbeddingDim),
		})
	}
	return resp, nil
}

func TestEmbedTexts(t *testing.T) {
	mock := &mockAIEmbedder{}
	e := NewEmbedderWithClient(mock, log.NewNop())

	texts := []string{"one", "two", "three"}
	embs, err := e.EmbedTexts(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedTexts() = %v", err)
	}
	if len(embs) != 3 {
		t.Fatalf("got %d embeddings, want 3", len(embs))
	}
	for i, emb := range embs {
		if len(emb) != EmbeddingDim {
			t.Errorf("embedding %d has %d dims, want %d", i, len(emb), EmbeddingDim)
		}
	}
}

func TestEmbedTextsBatching(t *testing.T) {
	mock := &mockAIEmbedder{}
	e := NewEmbedderWithClient(mock, log.NewNop())

	texts := make([]string, 150)
	for i := range texts {
		texts[i] = "text"
	}

	embs, err := e.EmbedTexts(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedTexts() = %v", err)
	}
	if len(embs) != 150 {
		t.Fatalf("got %d embeddings, want 150", len(embs))
	}
	if len(mock.batchSizes) != 2 || mock.batchSizes[0] != 100 || mock.batchSizes[1] != 50 {
		t.Errorf("batch sizes = %v, want [100 50]", mock.batchSizes)
	}
}

func TestEmbedTextsEmpty(t *testing.T) {
	e := NewEmbedderWithClient(&mockAIEmbedder{}, log.NewNop())

	embs, err := e.EmbedTexts(context.Background(), nil)
	if err != nil || embs != nil {
		t.Fatalf("EmbedTexts(nil) = %v, %v", embs, err)
	}
}

func TestEmbedTextsError(t *testing.T) {
	mock := &mockAIEmbedder{embedErr: errors.New("quota exceeded")}
	e := NewEmbedderWithClient(mock, log.NewNop())

	if _, err := e.EmbedTexts(context.Background(), []string{"x"}); err == nil {
		t.Fatal("EmbedTexts() = nil, want error")
	}
}

func TestEmbedTextsCountMismatch(t *testing.T) {
	mock := &mockAIEmbedder{shortBy: 1}
	e := NewEmbedderWithClient(mock, log.NewNop())

	_, err := e.EmbedTexts(context.Background(), []string{"a", "b"})
	if !errors.Is(err, ErrCountMismatch) {
		t.Fatalf("EmbedTexts() = %v, want ErrCountMismatch", err)
	}
}

func TestEmbedText(t *testing.T) {
	e := NewEmbedderWithClient(&mockAIEmbedder{}, log.NewNop())

	emb, err := e.EmbedText(context.Background(), "single")
	if err != nil {
		t.Fatalf("EmbedText() = %v", err)
	}
	if len(emb) != EmbeddingDim {
		t.Errorf("got %d dims, want %d", len(emb), EmbeddingDim)
	}
	if e.Dimension() != EmbeddingDim {
		t.Errorf("Dimension() = %d", e.Dimension())
	}
}
