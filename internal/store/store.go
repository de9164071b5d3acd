// Package store persists conversations and sync bookkeeping in PostgreSQL.
//
// It is the relational counterpart to the vector index in
// internal/knowledge: messages and sync records have no embeddings, but
// they feed retrieval (conversation recall) and change detection (verbatim
// modified_at comparison).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pensieve-cli/pensieve/internal/log"
)

var (
	// ErrNoSyncRecord indicates a document has never been synced.
	ErrNoSyncRecord = errors.New("no sync record")

	// ErrConversationNotFound indicates the conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")
)

// Conversation is one chat session.
type Conversation struct {
	ID        string
	Topic     string
	CreatedAt time.Time
	UpdatedAt time.Time

	// MessageCount is populated by listing queries.
	MessageCount int
}

// Message is one turn in a conversation.
type Message struct {
	ID             int64
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// SyncRecord tracks the last synced state of one document.
type SyncRecord struct {
	DocumentID string
	Source     string
	Title      string
	ChunkCount int

	// ModifiedAt is the source's timestamp string at sync time; nil when
	// the source reported none.
	ModifiedAt *string

	SyncedAt time.Time
}

// SyncStats summarizes the sync state.
type SyncStats struct {
	TotalDocuments int
	BySource       map[string]int
	LastSyncedAt   time.Time
}

// Querier is the query surface Store depends on.
type Querier interface {
	InsertConversation(ctx context.Context, id, topic string) error
	UpdateConversationTopic(ctx context.Context, id, topic string) error
	InsertMessage(ctx context.Context, conversationID, role, content string) error
	SelectMessages(ctx context.Context, conversationID string) ([]Message, error)
	SelectRecentConversations(ctx context.Context, limit int) ([]Conversation, error)
	SelectLastConversation(ctx context.Context) (Conversation, error)
	DeleteConversations(ctx context.Context) error

	UpsertSyncRecord(ctx context.Context, rec SyncRecord) error
	SelectSyncRecord(ctx context.Context, documentID string) (SyncRecord, error)
	SelectSyncStats(ctx context.Context) (SyncStats, error)
	DeleteSyncRecords(ctx context.Context) error
}

// Store provides conversation history and sync record operations.
type Store struct {
	querier Querier
	logger  log.Logger
}

// New creates a Store backed by the pool.
func New(pool *pgxpool.Pool, logger log.Logger) *Store {
	return &Store{querier: NewQueries(pool), logger: logger}
}

// NewWithQuerier creates a Store over a custom Querier. Intended for tests.
func NewWithQuerier(querier Querier, logger log.Logger) *Store {
	return &Store{querier: querier, logger: logger}
}

// CreateConversation registers a new conversation.
func (s *Store) CreateConversation(ctx context.Context, id, topic string) error {
	if err := s.querier.InsertConversation(ctx, id, topic); err != nil {
		return fmt.Errorf("creating conversation: %w", err)
	}
	s.logger.Debug("created conversation", "conversation_id", id, "topic", topic)
	return nil
}

// SetTopic updates a conversation's topic. The first user message usually
// becomes the topic once it is known.
func (s *Store) SetTopic(ctx context.Context, id, topic string) error {
	if err := s.querier.UpdateConversationTopic(ctx, id, topic); err != nil {
		return fmt.Errorf("updating conversation topic: %w", err)
	}
	return nil
}

// AddMessage appends a message and bumps the conversation's updated_at.
func (s *Store) AddMessage(ctx context.Context, conversationID, role, content string) error {
	if err := s.querier.InsertMessage(ctx, conversationID, role, content); err != nil {
		return fmt.Errorf("adding message: %w", err)
	}
	return nil
}

// GetMessages returns a conversation's messages in order.
func (s *Store) GetMessages(ctx context.Context, conversationID string) ([]Message, error) {
	msgs, err := s.querier.SelectMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("getting messages: %w", err)
	}
	return msgs, nil
}

// GetRecentConversations returns the most recently active conversations
// with their message counts, newest first.
func (s *Store) GetRecentConversations(ctx context.Context, limit int) ([]Conversation, error) {
	if limit < 1 {
		limit = 10
	}
	convs, err := s.querier.SelectRecentConversations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return convs, nil
}

// GetLastConversation returns the most recently active conversation.
// Returns ErrConversationNotFound when none exist.
func (s *Store) GetLastConversation(ctx context.Context) (Conversation, error) {
	conv, err := s.querier.SelectLastConversation(ctx)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return Conversation{}, err
		}
		return Conversation{}, fmt.Errorf("getting last conversation: %w", err)
	}
	return conv, nil
}

// ClearConversations removes all conversations and their messages.
func (s *Store) ClearConversations(ctx context.Context) error {
	if err := s.querier.DeleteConversations(ctx); err != nil {
		return fmt.Errorf("clearing conversations: %w", err)
	}
	s.logger.Info("cleared conversations")
	return nil
}

// RecordSyncedDocument stores or updates the sync record for a document.
func (s *Store) RecordSyncedDocument(ctx context.Context, documentID, source, title string, chunkCount int, modifiedAt *string) error {
	rec := SyncRecord{
		DocumentID: documentID,
		Source:     source,
		Title:      title,
		ChunkCount: chunkCount,
		ModifiedAt: modifiedAt,
	}
	if err := s.querier.UpsertSyncRecord(ctx, rec); err != nil {
		return fmt.Errorf("recording synced document: %w", err)
	}
	return nil
}

// GetSyncedModification returns the modified_at string stored for a
// document, nil when the source reported no timestamp, or ErrNoSyncRecord
// when the document was never synced.
func (s *Store) GetSyncedModification(ctx context.Context, documentID string) (*string, error) {
	rec, err := s.querier.SelectSyncRecord(ctx, documentID)
	if err != nil {
		if errors.Is(err, ErrNoSyncRecord) {
			return nil, err
		}
		return nil, fmt.Errorf("getting sync record: %w", err)
	}
	return rec.ModifiedAt, nil
}

// GetSyncStats summarizes how many documents each source has synced and
// when the last sync happened. A zero LastSyncedAt means never.
func (s *Store) GetSyncStats(ctx context.Context) (SyncStats, error) {
	stats, err := s.querier.SelectSyncStats(ctx)
	if err != nil {
		return SyncStats{}, fmt.Errorf("getting sync stats: %w", err)
	}
	return stats, nil
}

// ClearSyncRecords forgets all sync state, forcing the next sync to
// re-index everything.
func (s *Store) ClearSyncRecords(ctx context.Context) error {
	if err := s.querier.DeleteSyncRecords(ctx); err != nil {
		return fmt.Errorf("clearing sync records: %w", err)
	}
	s.logger.Info("cleared sync records")
	return nil
}
