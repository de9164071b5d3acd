package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/pensieve-cli/pensieve/internal/chunk"
	"github.com/pensieve-cli/pensieve/internal/log"
)

// Querier is the query surface Store depends on. Defined here so tests can
// substitute a mock without a database.
type Querier interface {
	UpsertChunk(ctx context.Context, arg UpsertChunkParams) error
	SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error)
	GetChunksByTitle(ctx context.Context, title string) ([]ChunkRow, error)
	DeleteDocumentChunks(ctx context.Context, documentID string) (int64, error)
	PruneDocumentChunks(ctx context.Context, documentID string, keep int) (int64, error)
	ListDocuments(ctx context.Context) ([]DocumentInfo, error)
	CountChunks(ctx context.Context) (int64, error)
	ClearChunks(ctx context.Context) (int64, error)
}

// Store persists and searches embedded chunks.
type Store struct {
	querier Querier
	pool    *pgxpool.Pool
	logger  log.Logger
}

// NewStore creates a Store backed by the pool. Upserts run inside a
// transaction so a failed sync never leaves a document half-indexed.
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	return &Store{
		querier: NewQueries(pool),
		pool:    pool,
		logger:  logger,
	}
}

// NewStoreWithQuerier creates a Store over a custom Querier. Intended for
// tests; upserts run without a transaction.
func NewStoreWithQuerier(querier Querier, logger log.Logger) *Store {
	return &Store{querier: querier, logger: logger}
}

// Upsert stores chunks with their embeddings. chunks[i] pairs with
// embeddings[i]; mismatched lengths return ErrCountMismatch, and a wrong
// embedding dimension returns ErrDimensionMismatch before any row is
// written.
func (s *Store) Upsert(ctx context.Context, chunks []chunk.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %d chunks, %d embeddings", ErrCountMismatch, len(chunks), len(embeddings))
	}
	for i, emb := range embeddings {
		if len(emb) != EmbeddingDim {
			return fmt.Errorf("%w: embedding %d has %d dimensions, want %d",
				ErrDimensionMismatch, i, len(emb), EmbeddingDim)
		}
	}
	if len(chunks) == 0 {
		return nil
	}

	upsertAll := func(q Querier) error {
		for i, ch := range chunks {
			err := q.UpsertChunk(ctx, UpsertChunkParams{
				DocumentID:    ch.DocumentID,
				ChunkIndex:    ch.Index,
				DocumentTitle: ch.DocumentTitle,
				Source:        string(ch.Source),
				Content:       ch.Text,
				Embedding:     pgvector.NewVector(embeddings[i]),
			})
			if err != nil {
				return fmt.Errorf("upserting chunk %s/%d: %w", ch.DocumentID, ch.Index, err)
			}
		}
		return nil
	}

	// Without a pool (mock querier) run non-transactionally.
	if s.pool == nil {
		return upsertAll(s.querier)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := upsertAll(NewQueries(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}

	s.logger.Debug("upserted chunks",
		"count", len(chunks), "document_id", chunks[0].DocumentID)
	return nil
}

// Search returns the chunks nearest to the query embedding by cosine
// distance, closest first. Defaults to 5 results over all sources.
func (s *Store) Search(ctx context.Context, embedding []float32, opts ...SearchOption) ([]SearchResult, error) {
	if len(embedding) != EmbeddingDim {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d",
			ErrDimensionMismatch, len(embedding), EmbeddingDim)
	}

	cfg := searchConfig{topK: 5}
	for _, opt := range opts {
		opt(&cfg)
	}

	rows, err := s.querier.SearchChunks(ctx, SearchChunksParams{
		Embedding: pgvector.NewVector(embedding),
		Source:    string(cfg.source),
		Limit:     cfg.topK,
	})
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	results := make([]SearchResult, len(rows))
	for i, r := range rows {
		results[i] = SearchResult{
			Chunk:    rowChunk(r),
			Distance: r.Distance,
		}
	}
	return results, nil
}

// GetByTitle returns every chunk of documents with the given title, in
// chunk order. Returns ErrNotFound when no document matches.
func (s *Store) GetByTitle(ctx context.Context, title string) ([]chunk.Chunk, error) {
	rows, err := s.querier.GetChunksByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("getting chunks by title: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: title %q", ErrNotFound, title)
	}

	chunks := make([]chunk.Chunk, len(rows))
	for i, r := range rows {
		chunks[i] = rowChunk(r)
	}
	return chunks, nil
}

// DeleteDocument removes all chunks of a document and returns how many
// were removed. Deleting an unknown document is not an error.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) (int64, error) {
	n, err := s.querier.DeleteDocumentChunks(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	s.logger.Debug("deleted document chunks", "document_id", documentID, "chunks", n)
	return n, nil
}

// PruneDocument removes chunks with index >= keep. Called after re-indexing
// a document that produced fewer chunks than before, so stale tail chunks
// never surface in search.
func (s *Store) PruneDocument(ctx context.Context, documentID string, keep int) error {
	n, err := s.querier.PruneDocumentChunks(ctx, documentID, keep)
	if err != nil {
		return fmt.Errorf("pruning document %s: %w", documentID, err)
	}
	if n > 0 {
		s.logger.Debug("pruned stale chunks",
			"document_id", documentID, "keep", keep, "removed", n)
	}
	return nil
}

// ListAll returns a summary of every indexed document, ordered by title.
func (s *Store) ListAll(ctx context.Context) ([]DocumentInfo, error) {
	infos, err := s.querier.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return infos, nil
}

// Count returns the total number of stored chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.querier.CountChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Clear removes every chunk from the index and returns how many were
// removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	n, err := s.querier.ClearChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("clearing chunks: %w", err)
	}
	s.logger.Info("cleared knowledge index", "chunks", n)
	return n, nil
}

func rowChunk(r ChunkRow) chunk.Chunk {
	return chunk.Chunk{
		Text:          r.Content,
		DocumentID:    r.DocumentID,
		DocumentTitle: r.DocumentTitle,
		Index:         r.ChunkIndex,
		Source:        chunkSource(r.Source),
	}
}

// chunkSource converts a stored source string, defaulting unknown values to
// note so old rows never break retrieval.
func chunkSource(s string) chunk.Source {
	src := chunk.Source(s)
	if !src.Valid() {
		return chunk.SourceNote
	}
	return src
}
