// Package knowledge implements the vector index over document chunks.
//
// Chunks are stored in PostgreSQL with pgvector embeddings and retrieved by
// cosine distance. The storage key is (document_id, chunk_index), so
// re-indexing a document overwrites its chunks in place.
package knowledge

import (
	"errors"

	"github.com/pensieve-cli/pensieve/internal/chunk"
)

var (
	// ErrCountMismatch indicates chunks and embeddings have different lengths.
	ErrCountMismatch = errors.New("chunk and embedding counts do not match")

	// ErrNotFound indicates no chunks matched the lookup.
	ErrNotFound = errors.New("no chunks found")

	// ErrDimensionMismatch indicates an embedding has the wrong dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// EmbeddingDim is the vector dimension of the chunks table. It must match
// the embedder model's output and the vector(768) column in db/migrations.
const EmbeddingDim = 768

// SearchResult is one chunk returned by similarity search.
type SearchResult struct {
	chunk.Chunk

	// Distance is the cosine distance to the query embedding, in [0, 2].
	// Smaller is more similar.
	Distance float64
}

// DocumentInfo summarizes one indexed document.
type DocumentInfo struct {
	DocumentID    string
	DocumentTitle string
	Source        chunk.Source
	ChunkCount    int
}

// searchConfig holds resolved search options.
type searchConfig struct {
	topK   int
	source chunk.Source
}

// SearchOption configures a similarity search.
type SearchOption func(*searchConfig)

// WithTopK sets the maximum number of results. Values below 1 are ignored.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k >= 1 {
			c.topK = k
		}
	}
}

// WithSource restricts results to chunks from one source.
func WithSource(s chunk.Source) SearchOption {
	return func(c *searchConfig) {
		c.source = s
	}
}
