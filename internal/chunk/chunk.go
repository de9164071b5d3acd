// Package chunk splits documents and conversations into embedding-sized
// pieces.
//
// Splitting is structure-aware: paragraph and heading boundaries are
// preferred, falling back to sentence boundaries only when a single section
// exceeds the chunk budget. Budgets are measured in estimated tokens, not
// characters, so the same configuration works for prose and for code-heavy
// notes.
package chunk

import "strings"

// Source identifies where a chunk's content originated.
type Source string

const (
	// SourceNote marks chunks derived from synced documents.
	SourceNote Source = "note"

	// SourceConversation marks chunks derived from stored conversations.
	SourceConversation Source = "conversation"

	// SourceStyle marks the generated writing style profile.
	SourceStyle Source = "style"
)

// Valid reports whether s is one of the known source values.
func (s Source) Valid() bool {
	switch s {
	case SourceNote, SourceConversation, SourceStyle:
		return true
	}
	return false
}

// Chunk is one embedding-sized piece of a document.
type Chunk struct {
	// Text is the chunk content, including the title prefix.
	Text string

	// DocumentID identifies the parent document. Together with Index it
	// forms the stable storage key, so re-syncing an unchanged document
	// overwrites rather than duplicates.
	DocumentID string

	// DocumentTitle is the human-readable title of the parent document.
	DocumentTitle string

	// Index is the zero-based position of this chunk within the document.
	Index int

	// Source tags the chunk's origin for filtered retrieval.
	Source Source
}

// Message is one turn of a conversation to be chunked.
type Message struct {
	Role    string
	Content string
}

// EstimateTokens approximates the token count of text as word count times 1.3.
// This matches the heuristic most subword tokenizers land near for English
// prose and is cheap enough to call per sentence.
func EstimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * 1.3)
}
