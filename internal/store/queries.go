package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx shared by pools, connections and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries executes conversation and sync SQL against a DBTX.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries bound to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const insertConversationSQL = `
INSERT INTO conversations (id, topic) VALUES ($1, $2)`

func (q *Queries) InsertConversation(ctx context.Context, id, topic string) error {
	_, err := q.db.Exec(ctx, insertConversationSQL, id, topic)
	return err
}

const updateTopicSQL = `
UPDATE conversations SET topic = $2, updated_at = now() WHERE id = $1`

func (q *Queries) UpdateConversationTopic(ctx context.Context, id, topic string) error {
	_, err := q.db.Exec(ctx, updateTopicSQL, id, topic)
	return err
}

const insertMessageSQL = `
WITH msg AS (
	INSERT INTO messages (conversation_id, role, content)
	VALUES ($1, $2, $3)
)
UPDATE conversations SET updated_at = now() WHERE id = $1`

func (q *Queries) InsertMessage(ctx context.Context, conversationID, role, content string) error {
	_, err := q.db.Exec(ctx, insertMessageSQL, conversationID, role, content)
	return err
}

const selectMessagesSQL = `
SELECT id, conversation_id, role, content, created_at
FROM messages
WHERE conversation_id = $1
ORDER BY id`

func (q *Queries) SelectMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := q.db.Query(ctx, selectMessagesSQL, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

const selectRecentConversationsSQL = `
SELECT c.id, c.topic, c.created_at, c.updated_at, count(m.id)
FROM conversations c
LEFT JOIN messages m ON m.conversation_id = c.id
GROUP BY c.id
ORDER BY c.updated_at DESC
LIMIT $1`

func (q *Queries) SelectRecentConversations(ctx context.Context, limit int) ([]Conversation, error) {
	rows, err := q.db.Query(ctx, selectRecentConversationsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Topic, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

const selectLastConversationSQL = `
SELECT c.id, c.topic, c.created_at, c.updated_at, count(m.id)
FROM conversations c
LEFT JOIN messages m ON m.conversation_id = c.id
GROUP BY c.id
ORDER BY c.updated_at DESC
LIMIT 1`

func (q *Queries) SelectLastConversation(ctx context.Context) (Conversation, error) {
	var c Conversation
	err := q.db.QueryRow(ctx, selectLastConversationSQL).
		Scan(&c.ID, &c.Topic, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrConversationNotFound
	}
	return c, err
}

const deleteConversationsSQL = `DELETE FROM conversations`

func (q *Queries) DeleteConversations(ctx context.Context) error {
	_, err := q.db.Exec(ctx, deleteConversationsSQL)
	return err
}

const upsertSyncRecordSQL = `
INSERT INTO sync_records (document_id, source, title, chunk_count, modified_at, synced_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (document_id)
DO UPDATE SET
	source = EXCLUDED.source,
	title = EXCLUDED.title,
	chunk_count = EXCLUDED.chunk_count,
	modified_at = EXCLUDED.modified_at,
	synced_at = now()`

func (q *Queries) UpsertSyncRecord(ctx context.Context, rec SyncRecord) error {
	_, err := q.db.Exec(ctx, upsertSyncRecordSQL,
		rec.DocumentID, rec.Source, rec.Title, rec.ChunkCount, rec.ModifiedAt)
	return err
}

const selectSyncRecordSQL = `
SELECT document_id, source, title, chunk_count, modified_at, synced_at
FROM sync_records
WHERE document_id = $1`

func (q *Queries) SelectSyncRecord(ctx context.Context, documentID string) (SyncRecord, error) {
	var rec SyncRecord
	err := q.db.QueryRow(ctx, selectSyncRecordSQL, documentID).
		Scan(&rec.DocumentID, &rec.Source, &rec.Title, &rec.ChunkCount, &rec.ModifiedAt, &rec.SyncedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return SyncRecord{}, ErrNoSyncRecord
	}
	return rec, err
}

const selectSyncStatsSQL = `
SELECT source, count(*), max(synced_at)
FROM sync_records
GROUP BY source`

func (q *Queries) SelectSyncStats(ctx context.Context) (SyncStats, error) {
	rows, err := q.db.Query(ctx, selectSyncStatsSQL)
	if err != nil {
		return SyncStats{}, err
	}
	defer rows.Close()

	stats := SyncStats{BySource: make(map[string]int)}
	for rows.Next() {
		var (
			source string
			count  int
			last   time.Time
		)
		if err := rows.Scan(&source, &count, &last); err != nil {
			return SyncStats{}, fmt.Errorf("scanning sync stats: %w", err)
		}
		stats.BySource[source] = count
		stats.TotalDocuments += count
		if last.After(stats.LastSyncedAt) {
			stats.LastSyncedAt = last
		}
	}
	return stats, rows.Err()
}

const deleteSyncRecordsSQL = `DELETE FROM sync_records`

func (q *Queries) DeleteSyncRecords(ctx context.Context) error {
	_, err := q.db.Exec(ctx, deleteSyncRecordsSQL)
	return err
}
