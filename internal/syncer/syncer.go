// Package syncer coordinates pulling documents from sources into the
// knowledge index.
//
// Change detection is incremental where the source supports it: stored
// modification strings are compared verbatim against the source's current
// ones, and only changed documents are fetched, chunked, embedded and
// upserted. Documents that shrink have their stale tail chunks pruned.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pensieve-cli/pensieve/internal/chunk"
	"github.com/pensieve-cli/pensieve/internal/knowledge"
	"github.com/pensieve-cli/pensieve/internal/log"
	"github.com/pensieve-cli/pensieve/internal/source"
	"github.com/pensieve-cli/pensieve/internal/store"
)

// minUserMessages is the minimum number of user turns a conversation needs
// before it is worth embedding. Shorter exchanges carry no retrievable
// signal.
const minUserMessages = 3

// ErrConversationTooShort indicates a conversation has too few user
// messages to embed.
var ErrConversationTooShort = errors.New("conversation too short to embed")

// Index is the slice of the knowledge store the syncer writes to.
type Index interface {
	Upsert(ctx context.Context, chunks []chunk.Chunk, embeddings [][]float32) error
	PruneDocument(ctx context.Context, documentID string, keep int) error
	Clear(ctx context.Context) (int64, error)
}

// Records is the sync bookkeeping the syncer reads and writes.
type Records interface {
	RecordSyncedDocument(ctx context.Context, documentID, source, title string, chunkCount int, modifiedAt *string) error
	GetSyncedModification(ctx context.Context, documentID string) (*string, error)
	GetSyncStats(ctx context.Context) (store.SyncStats, error)
	ClearSyncRecords(ctx context.Context) error
}

// Conversations is the conversation history the syncer embeds from.
type Conversations interface {
	GetMessages(ctx context.Context, conversationID string) ([]store.Message, error)
}

// Options configures one sync run.
type Options struct {
	// Limit caps documents per source; <= 0 means no cap.
	Limit int

	// Clear wipes the index and sync records first, forcing a full
	// re-index.
	Clear bool

	// Silent suppresses per-document progress logging. Used by auto-sync
	// so a stale index refreshes without chattering over the user's
	// question.
	Silent bool
}

// Result summarizes one sync run.
type Result struct {
	Scanned  int
	Indexed  int
	Skipped  int
	Failed   int
	Chunks   int
	BySource map[string]int
	Duration time.Duration
}

// Coordinator runs syncs across the configured sources.
type Coordinator struct {
	sources       []source.Source
	chunker       *chunk.Chunker
	embedder      knowledge.Embedder
	index         Index
	records       Records
	conversations Conversations
	autoSyncAfter time.Duration
	logger        log.Logger
}

// New creates a Coordinator. autoSyncAfter of zero disables auto-sync.
func New(
	sources []source.Source,
	chunker *chunk.Chunker,
	embedder knowledge.Embedder,
	index Index,
	records Records,
	conversations Conversations,
	autoSyncAfter time.Duration,
	logger log.Logger,
) *Coordinator {
	return &Coordinator{
		sources:       sources,
		chunker:       chunker,
		embedder:      embedder,
		index:         index,
		records:       records,
		conversations: conversations,
		autoSyncAfter: autoSyncAfter,
		logger:        logger,
	}
}

// Sync pulls changed documents from every source into the index.
// A failing source or document is logged and counted, not fatal; documents
// already indexed keep their sync records, so a rerun resumes cheaply.
func (c *Coordinator) Sync(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	if opts.Clear {
		if _, err := c.index.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clearing index: %w", err)
		}
		if err := c.records.ClearSyncRecords(ctx); err != nil {
			return nil, fmt.Errorf("clearing sync records: %w", err)
		}
	}

	result := &Result{BySource: make(map[string]int)}
	for _, src := range c.sources {
		if err := c.syncSource(ctx, src, opts, result); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn("source failed, skipping", "source", src.Name(), "error", err)
		}
	}

	result.Duration = time.Since(start)
	if !opts.Silent {
		c.logger.Info("sync complete",
			"scanned", result.Scanned,
			"indexed", result.Indexed,
			"skipped", result.Skipped,
			"chunks", result.Chunks,
			"duration", result.Duration.Round(time.Millisecond))
	}
	return result, nil
}

func (c *Coordinator) syncSource(ctx context.Context, src source.Source, opts Options, result *Result) error {
	docs, scanned, err := c.changedDocuments(ctx, src, opts.Limit)
	if err != nil {
		return err
	}

	result.Scanned += scanned
	result.Skipped += scanned - len(docs)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := c.indexDocument(ctx, src.Name(), doc)
		if err != nil {
			result.Failed++
			c.logger.Warn("document failed, skipping",
				"source", src.Name(), "title", doc.Title, "error", err)
			continue
		}
		result.Indexed++
		result.Chunks += n
		result.BySource[src.Name()]++

		if !opts.Silent {
			c.logger.Info("indexed document",
				"source", src.Name(), "title", doc.Title, "chunks", n)
		}
	}
	return nil
}

// changedDocuments returns the documents needing re-indexing and the number
// of documents examined.
func (c *Coordinator) changedDocuments(ctx context.Context, src source.Source, limit int) ([]source.Document, int, error) {
	inc, ok := src.(source.Incremental)
	if !ok {
		docs, err := src.FetchAll(ctx, limit)
		if err != nil {
			return nil, 0, err
		}

		var changed []source.Document
		for _, doc := range docs {
			stale, err := c.isStale(ctx, doc.ID, doc.ModifiedAt)
			if err != nil {
				return nil, 0, err
			}
			if stale {
				changed = append(changed, doc)
			}
		}
		return changed, len(docs), nil
	}

	metas, err := inc.ListMetadata(ctx)
	if err != nil {
		return nil, 0, err
	}
	if limit > 0 && len(metas) > limit {
		metas = metas[:limit]
	}

	var (
		ids     []string
		folders = make(map[string]string)
	)
	for _, m := range metas {
		stale, err := c.isStale(ctx, m.ID, m.ModifiedAt)
		if err != nil {
			return nil, 0, err
		}
		if stale {
			ids = append(ids, m.ID)
			folders[m.ID] = m.Folder
		}
	}
	if len(ids) == 0 {
		return nil, len(metas), nil
	}

	docs, err := inc.FetchByID(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range docs {
		if docs[i].Folder == "" {
			docs[i].Folder = folders[docs[i].ID]
		}
	}
	return docs, len(metas), nil
}

// isStale reports whether a document changed since its last sync. The
// stored and current modification strings are compared verbatim; any
// difference, including format drift, re-indexes the document, which is
// safe because upserts are idempotent.
func (c *Coordinator) isStale(ctx context.Context, documentID, modifiedAt string) (bool, error) {
	stored, err := c.records.GetSyncedModification(ctx, documentID)
	if err != nil {
		if errors.Is(err, store.ErrNoSyncRecord) {
			return true, nil
		}
		return false, err
	}
	if stored == nil {
		return true, nil
	}
	return *stored != modifiedAt, nil
}

// indexDocument chunks, embeds and upserts one document, prunes any stale
// tail chunks and records the sync. Returns the chunk count.
func (c *Coordinator) indexDocument(ctx context.Context, sourceName string, doc source.Document) (int, error) {
	chunks := c.chunker.Document(doc.ID, doc.Title, doc.Body, chunk.SourceNote)

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Text
		}

		embeddings, err := c.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embedding %q: %w", doc.Title, err)
		}
		if err := c.index.Upsert(ctx, chunks, embeddings); err != nil {
			return 0, fmt.Errorf("indexing %q: %w", doc.Title, err)
		}
	}

	// A shrunken (or emptied) document leaves stale chunks past the new
	// count.
	if err := c.index.PruneDocument(ctx, doc.ID, len(chunks)); err != nil {
		return 0, err
	}

	var modified *string
	if doc.ModifiedAt != "" {
		m := doc.ModifiedAt
		modified = &m
	}
	if err := c.records.RecordSyncedDocument(ctx, doc.ID, sourceName, doc.Title, len(chunks), modified); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// NeedsSync reports whether the index is stale enough for auto-sync.
func (c *Coordinator) NeedsSync(ctx context.Context) (bool, error) {
	if c.autoSyncAfter <= 0 {
		return false, nil
	}
	stats, err := c.records.GetSyncStats(ctx)
	if err != nil {
		return false, err
	}
	if stats.LastSyncedAt.IsZero() {
		return true, nil
	}
	return time.Since(stats.LastSyncedAt) > c.autoSyncAfter, nil
}

// AutoSyncIfNeeded runs a silent sync when the index is stale. Sync
// failures are logged, not returned; a stale index still answers questions.
func (c *Coordinator) AutoSyncIfNeeded(ctx context.Context) {
	needed, err := c.NeedsSync(ctx)
	if err != nil {
		c.logger.Warn("checking sync staleness", "error", err)
		return
	}
	if !needed {
		return
	}

	c.logger.Debug("index stale, auto-syncing")
	if _, err := c.Sync(ctx, Options{Silent: true}); err != nil {
		c.logger.Warn("auto-sync failed", "error", err)
	}
}

// EmbedConversation indexes a finished conversation so later questions can
// retrieve it. Conversations with fewer than three user turns return
// ErrConversationTooShort and are not embedded.
func (c *Coordinator) EmbedConversation(ctx context.Context, conversationID string) error {
	msgs, err := c.conversations.GetMessages(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("loading conversation %s: %w", conversationID, err)
	}

	var (
		userTurns int
		topic     string
	)
	for _, m := range msgs {
		if m.Role == "user" {
			userTurns++
			if topic == "" {
				topic = truncate(m.Content, 80)
			}
		}
	}
	if userTurns < minUserMessages {
		return fmt.Errorf("%w: %d user messages, need %d", ErrConversationTooShort, userTurns, minUserMessages)
	}

	chunkMsgs := make([]chunk.Message, len(msgs))
	for i, m := range msgs {
		chunkMsgs[i] = chunk.Message{Role: m.Role, Content: m.Content}
	}

	chunks := c.chunker.Conversation(conversationID, topic, chunkMsgs)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	embeddings, err := c.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding conversation %s: %w", conversationID, err)
	}
	if err := c.index.Upsert(ctx, chunks, embeddings); err != nil {
		return fmt.Errorf("indexing conversation %s: %w", conversationID, err)
	}
	if err := c.index.PruneDocument(ctx, conversationID, len(chunks)); err != nil {
		return err
	}

	c.logger.Debug("embedded conversation",
		"conversation_id", conversationID, "chunks", len(chunks))
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
