// Package rag assembles retrieval context for the language model.
//
// A context block is built from up to four parts: the user's identity
// profile, the writing style guide, a recall of the most recent
// conversation, and similarity-searched chunks split into notes and past
// conversations. Sections that have nothing to contribute are omitted; with
// nothing at all the context is the empty string.
package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pensieve-cli/pensieve/internal/chunk"
	"github.com/pensieve-cli/pensieve/internal/knowledge"
	"github.com/pensieve-cli/pensieve/internal/log"
	"github.com/pensieve-cli/pensieve/internal/store"
)

const (
	// recallMessages is how many trailing messages of the last
	// conversation are recalled, covering the last three exchanges.
	recallMessages = 6

	// recallTruncate bounds each recalled message for the context block.
	recallTruncate = 150
)

// Index is the slice of the knowledge store the retriever reads.
type Index interface {
	Search(ctx context.Context, embedding []float32, opts ...knowledge.SearchOption) ([]knowledge.SearchResult, error)
	GetByTitle(ctx context.Context, title string) ([]chunk.Chunk, error)
}

// Conversations is the conversation history the retriever recalls from.
type Conversations interface {
	GetLastConversation(ctx context.Context) (store.Conversation, error)
	GetMessages(ctx context.Context, conversationID string) ([]store.Message, error)
}

// BuildOptions configures one context build.
type BuildOptions struct {
	// TopK caps similarity results; <= 0 uses the retriever default.
	TopK int

	// IncludeConversations also surfaces past-conversation chunks.
	IncludeConversations bool

	// CurrentConversationID excludes the ongoing conversation from both
	// recall and search results so the model is not fed its own transcript.
	CurrentConversationID string
}

// Retriever builds retrieval context for a query.
type Retriever struct {
	embedder      knowledge.Embedder
	index         Index
	conversations Conversations
	profileTitle  string
	styleTitle    string
	topK          int
	logger        log.Logger
}

// NewRetriever creates a Retriever. profileTitle and styleTitle name the
// documents holding the identity profile and the style guide.
func NewRetriever(
	embedder knowledge.Embedder,
	index Index,
	conversations Conversations,
	profileTitle, styleTitle string,
	topK int,
	logger log.Logger,
) *Retriever {
	if topK < 1 {
		topK = 5
	}
	return &Retriever{
		embedder:      embedder,
		index:         index,
		conversations: conversations,
		profileTitle:  profileTitle,
		styleTitle:    styleTitle,
		topK:          topK,
		logger:        logger,
	}
}

// BuildContext assembles the context block for a query. Returns the empty
// string when nothing relevant is indexed.
func (r *Retriever) BuildContext(ctx context.Context, query string, opts BuildOptions) (string, error) {
	topK := opts.TopK
	if topK < 1 {
		topK = r.topK
	}

	var sections []string

	if profile := r.documentText(ctx, r.profileTitle); profile != "" {
		sections = append(sections, "## About the User\n"+profile)
	}
	if style := r.documentText(ctx, r.styleTitle); style != "" {
		sections = append(sections, "## Writing Style to Match\n"+style)
	}
	if recall := r.recallLastConversation(ctx, opts.CurrentConversationID); recall != "" {
		sections = append(sections, "## Recent Conversation\n"+recall)
	}

	results, err := r.search(ctx, query, topK, opts)
	if err != nil {
		return "", err
	}

	var (
		notes         []string
		conversations []string
		titles        []string
	)
	for _, res := range results {
		switch res.Source {
		case chunk.SourceConversation:
			conversations = append(conversations, res.Text)
		default:
			notes = append(notes, res.Text)
		}
		titles = append(titles, res.DocumentTitle)
	}

	if len(notes) > 0 {
		sections = append(sections, "## Relevant Notes\n"+strings.Join(notes, "\n\n---\n\n"))
	}
	if len(conversations) > 0 {
		sections = append(sections, "## Relevant Past Conversations\n"+strings.Join(conversations, "\n\n---\n\n"))
	}

	if len(sections) == 0 {
		return "", nil
	}

	out := strings.Join(sections, "\n\n")
	if line := sourcesLine(titles); line != "" {
		out += "\n\n" + line
	}
	return out, nil
}

// Search embeds the query and returns raw ranked results across all
// sources. Used by the search surface; BuildContext applies its own
// filtering on top.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]knowledge.SearchResult, error) {
	if topK < 1 {
		topK = r.topK
	}
	embedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	results, err := r.index.Search(ctx, embedding, knowledge.WithTopK(topK))
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	return results, nil
}

// search embeds the query and runs the similarity search, filtering to
// notes unless conversations are requested.
func (r *Retriever) search(ctx context.Context, query string, topK int, opts BuildOptions) ([]knowledge.SearchResult, error) {
	embedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	searchOpts := []knowledge.SearchOption{knowledge.WithTopK(topK)}
	if !opts.IncludeConversations {
		searchOpts = append(searchOpts, knowledge.WithSource(chunk.SourceNote))
	}

	results, err := r.index.Search(ctx, embedding, searchOpts...)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	filtered := results[:0]
	for _, res := range results {
		// The ongoing conversation and the ambient profile documents are
		// already included as their own sections.
		if opts.CurrentConversationID != "" && res.DocumentID == opts.CurrentConversationID {
			continue
		}
		if res.Source == chunk.SourceStyle {
			continue
		}
		if res.DocumentTitle == r.profileTitle {
			continue
		}
		filtered = append(filtered, res)
	}
	return filtered, nil
}

// documentText fetches a document by title and joins its chunks, stripping
// the title prefixes. Missing documents yield the empty string.
func (r *Retriever) documentText(ctx context.Context, title string) string {
	if title == "" {
		return ""
	}
	chunks, err := r.index.GetByTitle(ctx, title)
	if err != nil {
		if !errors.Is(err, knowledge.ErrNotFound) {
			r.logger.Warn("loading document for context", "title", title, "error", err)
		}
		return ""
	}

	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = stripPrefix(ch.Text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// recallLastConversation renders the tail of the most recent conversation.
// Conversations with fewer than two messages are not worth recalling.
func (r *Retriever) recallLastConversation(ctx context.Context, currentID string) string {
	conv, err := r.conversations.GetLastConversation(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrConversationNotFound) {
			r.logger.Warn("loading last conversation", "error", err)
		}
		return ""
	}
	if conv.ID == currentID {
		return ""
	}

	msgs, err := r.conversations.GetMessages(ctx, conv.ID)
	if err != nil {
		r.logger.Warn("loading last conversation messages", "error", err)
		return ""
	}
	if len(msgs) < 2 {
		return ""
	}
	if len(msgs) > recallMessages {
		msgs = msgs[len(msgs)-recallMessages:]
	}

	var b strings.Builder
	for _, m := range msgs {
		role := "User"
		if m.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, truncate(m.Content, recallTruncate))
	}
	return strings.TrimSpace(b.String())
}

// sourcesLine renders the deduplicated, sorted source titles.
func sourcesLine(titles []string) string {
	if len(titles) == 0 {
		return ""
	}
	seen := make(map[string]bool)
	var unique []string
	for _, t := range titles {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		unique = append(unique, t)
	}
	if len(unique) == 0 {
		return ""
	}
	sort.Strings(unique)
	return "[Sources: " + strings.Join(unique, ", ") + "]"
}

// stripPrefix removes the "[Note: ...]" or "[Conversation: ...]" chunk
// prefix when present.
func stripPrefix(text string) string {
	if !strings.HasPrefix(text, "[") {
		return text
	}
	if idx := strings.Index(text, "]\n\n"); idx >= 0 {
		return text[idx+3:]
	}
	return text
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
