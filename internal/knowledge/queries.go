package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DBTX is the subset of pgx shared by pools, connections and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries executes the chunk SQL against a DBTX.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries bound to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to the transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// UpsertChunkParams holds one chunk row.
type UpsertChunkParams struct {
	DocumentID    string
	ChunkIndex    int
	DocumentTitle string
	Source        string
	Content       string
	Embedding     pgvector.Vector
}

const upsertChunkSQL = `
INSERT INTO chunks (document_id, chunk_index, document_title, source, content, embedding, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (document_id, chunk_index)
DO UPDATE SET
	document_title = EXCLUDED.document_title,
	source = EXCLUDED.source,
	content = EXCLUDED.content,
	embedding = EXCLUDED.embedding,
	updated_at = now()`

func (q *Queries) UpsertChunk(ctx context.Context, arg UpsertChunkParams) error {
	_, err := q.db.Exec(ctx, upsertChunkSQL,
		arg.DocumentID, arg.ChunkIndex, arg.DocumentTitle, arg.Source, arg.Content, arg.Embedding)
	return err
}

// SearchChunksParams configures a similarity search query.
type SearchChunksParams struct {
	Embedding pgvector.Vector
	Source    string // empty means all sources
	Limit     int
}

// ChunkRow is one chunk row with its distance to the query.
type ChunkRow struct {
	DocumentID    string
	ChunkIndex    int
	DocumentTitle string
	Source        string
	Content       string
	Distance      float64
}

const searchChunksSQL = `
SELECT document_id, chunk_index, document_title, source, content,
	embedding <=> $1 AS distance
FROM chunks
WHERE ($2 = '' OR source = $2)
ORDER BY distance
LIMIT $3`

func (q *Queries) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]ChunkRow, error) {
	rows, err := q.db.Query(ctx, searchChunksSQL, arg.Embedding, arg.Source, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunkRows(rows, true)
}

const chunksByTitleSQL = `
SELECT document_id, chunk_index, document_title, source, content
FROM chunks
WHERE document_title = $1
ORDER BY document_id, chunk_index`

func (q *Queries) GetChunksByTitle(ctx context.Context, title string) ([]ChunkRow, error) {
	rows, err := q.db.Query(ctx, chunksByTitleSQL, title)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunkRows(rows, false)
}

const deleteDocumentSQL = `DELETE FROM chunks WHERE document_id = $1`

// DeleteDocumentChunks removes every chunk of a document and reports how
// many rows were removed.
func (q *Queries) DeleteDocumentChunks(ctx context.Context, documentID string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteDocumentSQL, documentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const pruneDocumentSQL = `DELETE FROM chunks WHERE document_id = $1 AND chunk_index >= $2`

// PruneDocumentChunks removes chunks at index keep and above, used when a
// document shrank on re-sync.
func (q *Queries) PruneDocumentChunks(ctx context.Context, documentID string, keep int) (int64, error) {
	tag, err := q.db.Exec(ctx, pruneDocumentSQL, documentID, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listDocumentsSQL = `
SELECT document_id, max(document_title), max(source), count(*)
FROM chunks
GROUP BY document_id
ORDER BY max(document_title), document_id`

func (q *Queries) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := q.db.Query(ctx, listDocumentsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []DocumentInfo
	for rows.Next() {
		var info DocumentInfo
		var source string
		if err := rows.Scan(&info.DocumentID, &info.DocumentTitle, &source, &info.ChunkCount); err != nil {
			return nil, fmt.Errorf("scanning document info: %w", err)
		}
		info.Source = chunkSource(source)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

const countChunksSQL = `SELECT count(*) FROM chunks`

func (q *Queries) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countChunksSQL).Scan(&n)
	return n, err
}

const clearChunksSQL = `DELETE FROM chunks`

func (q *Queries) ClearChunks(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, clearChunksSQL)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanChunkRows(rows pgx.Rows, withDistance bool) ([]ChunkRow, error) {
	var out []ChunkRow
	for rows.Next() {
		var r ChunkRow
		var err error
		if withDistance {
			err = rows.Scan(&r.DocumentID, &r.ChunkIndex, &r.DocumentTitle, &r.Source, &r.Content, &r.Distance)
		} else {
			err = rows.Scan(&r.DocumentID, &r.ChunkIndex, &r.DocumentTitle, &r.Source, &r.Content)
		}
		if err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
