package chunk

import (
	"fmt"
	"strings"
)

// Chunker splits text into chunks bounded by an estimated-token budget.
// The zero value is not usable; construct with New.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker with the given budgets in estimated tokens.
// overlap controls how many trailing tokens of one chunk are repeated at the
// start of the next, preserving context across the cut.
func New(size, overlap int) *Chunker {
	if size < 1 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Chunker{size: size, overlap: overlap}
}

// Document splits a document body into chunks. Every chunk carries a
// "[Note: <title>]" prefix so the embedding captures which document the text
// belongs to even when the body itself never repeats the title.
//
// An empty or whitespace-only body yields no chunks.
func (c *Chunker) Document(id, title, body string, src Source) []Chunk {
	prefix := fmt.Sprintf("[Note: %s]\n\n", title)
	return c.split(id, title, prefix, body, src)
}

// Conversation renders messages as "User:"/"Assistant:" turns and splits the
// transcript like a document. topic becomes the chunk prefix so retrieval can
// surface what the conversation was about.
func (c *Chunker) Conversation(id, topic string, messages []Message) []Chunk {
	var b strings.Builder
	for _, m := range messages {
		role := "User"
		if m.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n\n", role, strings.TrimSpace(m.Content))
	}

	prefix := fmt.Sprintf("[Conversation: %s]\n\n", topic)
	return c.split(id, topic, prefix, b.String(), SourceConversation)
}

// split assembles sections into chunks up to the token budget, breaking
// oversized sections at sentence boundaries.
func (c *Chunker) split(id, title, prefix, body string, src Source) []Chunk {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}

	// Flatten sections into budget-sized pieces first, then assemble.
	var pieces []string
	for _, section := range splitSections(body) {
		if EstimateTokens(section) <= c.size {
			pieces = append(pieces, section)
			continue
		}
		pieces = append(pieces, c.splitOversized(section)...)
	}

	var (
		chunks  []Chunk
		current []string
		tokens  int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		text := prefix + strings.Join(current, "\n\n")
		chunks = append(chunks, Chunk{
			Text:          text,
			DocumentID:    id,
			DocumentTitle: title,
			Index:         len(chunks),
			Source:        src,
		})

		// Seed the next chunk with the tail of this one.
		carry, carryTokens := c.carryover(current)
		current = carry
		tokens = carryTokens
	}

	for _, piece := range pieces {
		pt := EstimateTokens(piece)
		if tokens+pt > c.size && len(current) > 0 {
			flush()
			// The carryover seeded by flush counts against the budget
			// too. When it cannot fit alongside the next piece, the
			// piece wins and the overlap is dropped.
			if tokens+pt > c.size {
				current = nil
				tokens = 0
			}
		}
		current = append(current, piece)
		tokens += pt
	}
	if len(current) > 0 {
		// Drop a final chunk that is pure carryover; its content is
		// already covered by the previous chunk.
		text := prefix + strings.Join(current, "\n\n")
		if len(chunks) == 0 || !strings.Contains(chunks[len(chunks)-1].Text, strings.Join(current, "\n\n")) {
			chunks = append(chunks, Chunk{
				Text:          text,
				DocumentID:    id,
				DocumentTitle: title,
				Index:         len(chunks),
				Source:        src,
			})
		}
	}

	return chunks
}

// carryover picks trailing pieces of the finished chunk worth up to the
// overlap budget.
func (c *Chunker) carryover(pieces []string) ([]string, int) {
	if c.overlap == 0 {
		return nil, 0
	}
	var (
		carry  []string
		tokens int
	)
	for i := len(pieces) - 1; i >= 0; i-- {
		pt := EstimateTokens(pieces[i])
		if tokens+pt > c.overlap {
			break
		}
		carry = append([]string{pieces[i]}, carry...)
		tokens += pt
	}
	return carry, tokens
}

// splitOversized breaks a section exceeding the budget into sentence groups.
// A single sentence longer than the budget is emitted as its own piece; the
// embedder truncates rather than the chunker mangling mid-word.
func (c *Chunker) splitOversized(section string) []string {
	var (
		pieces  []string
		current []string
		tokens  int
	)
	for _, sentence := range splitSentences(section) {
		st := EstimateTokens(sentence)
		if tokens+st > c.size && len(current) > 0 {
			pieces = append(pieces, strings.Join(current, " "))
			current = current[:0]
			tokens = 0
		}
		current = append(current, sentence)
		tokens += st
	}
	if len(current) > 0 {
		pieces = append(pieces, strings.Join(current, " "))
	}
	return pieces
}

// splitSections splits text at blank lines and before markdown headings.
func splitSections(text string) []string {
	var (
		sections []string
		current  []string
	)
	flush := func() {
		s := strings.TrimSpace(strings.Join(current, "\n"))
		if s != "" {
			sections = append(sections, s)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		// A heading starts a new section even without a preceding blank line.
		if strings.HasPrefix(trimmed, "#") && len(current) > 0 {
			flush()
		}
		current = append(current, line)
	}
	flush()

	return sections
}

// splitSentences splits text after terminal punctuation followed by
// whitespace. Scanning by index avoids needing lookbehind, which Go's
// regexp engine does not support.
func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				s := strings.TrimSpace(string(runes[start : i+1]))
				if s != "" {
					sentences = append(sentences, s)
				}
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
