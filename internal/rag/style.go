package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pensieve-cli/pensieve/internal/chunk"
	"github.com/pensieve-cli/pensieve/internal/knowledge"
	"github.com/pensieve-cli/pensieve/internal/log"
)

const (
	// StyleDocumentID is the fixed document ID of the generated style
	// guide, so regeneration overwrites rather than accumulates.
	StyleDocumentID = "style_profile"

	// styleSampleBudget bounds the writing sample sent to the model, in
	// characters.
	styleSampleBudget = 15000
)

// ErrNoWritingSamples indicates no notes are indexed to profile from.
var ErrNoWritingSamples = errors.New("no writing samples in the index")

// Completer generates text from a prompt. Satisfied by internal/ai.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// StyleIndex is the slice of the knowledge store the profiler uses.
type StyleIndex interface {
	ListAll(ctx context.Context) ([]knowledge.DocumentInfo, error)
	GetByTitle(ctx context.Context, title string) ([]chunk.Chunk, error)
	Upsert(ctx context.Context, chunks []chunk.Chunk, embeddings [][]float32) error
	PruneDocument(ctx context.Context, documentID string, keep int) error
	DeleteDocument(ctx context.Context, documentID string) (int64, error)
}

// StyleProfiler derives a writing style guide from the user's own notes and
// stores it as a retrievable document.
type StyleProfiler struct {
	index    StyleIndex
	embedder knowledge.Embedder
	complete Completer
	chunker  *chunk.Chunker
	title    string
	logger   log.Logger
}

// NewStyleProfiler creates a StyleProfiler. title is the document title the
// generated guide is stored under.
func NewStyleProfiler(
	index StyleIndex,
	embedder knowledge.Embedder,
	completer Completer,
	chunker *chunk.Chunker,
	title string,
	logger log.Logger,
) *StyleProfiler {
	return &StyleProfiler{
		index:    index,
		embedder: embedder,
		complete: completer,
		chunker:  chunker,
		title:    title,
		logger:   logger,
	}
}

// Generate samples the indexed notes, asks the model to describe the
// writing style, and indexes the result. Returns the generated guide.
func (p *StyleProfiler) Generate(ctx context.Context) (string, error) {
	sample, err := p.collectSample(ctx)
	if err != nil {
		return "", err
	}
	if sample == "" {
		return "", ErrNoWritingSamples
	}

	guide, err := p.complete.Complete(ctx, stylePrompt(sample))
	if err != nil {
		return "", fmt.Errorf("generating style guide: %w", err)
	}
	guide = strings.TrimSpace(guide)
	if guide == "" {
		return "", fmt.Errorf("model returned an empty style guide")
	}

	chunks := p.chunker.Document(StyleDocumentID, p.title, guide, chunk.SourceStyle)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return "", fmt.Errorf("embedding style guide: %w", err)
	}
	if err := p.index.Upsert(ctx, chunks, embeddings); err != nil {
		return "", fmt.Errorf("indexing style guide: %w", err)
	}
	if err := p.index.PruneDocument(ctx, StyleDocumentID, len(chunks)); err != nil {
		return "", err
	}

	p.logger.Info("style guide generated",
		"sample_chars", len(sample), "guide_chars", len(guide))
	return guide, nil
}

// collectSample gathers the first chunk of each note document, skipping
// conversations and the style guide itself, until the sample budget is
// spent.
func (p *StyleProfiler) collectSample(ctx context.Context) (string, error) {
	infos, err := p.index.ListAll(ctx)
	if err != nil {
		return "", fmt.Errorf("listing documents: %w", err)
	}

	var (
		parts []string
		total int
		seen  = make(map[string]bool)
	)
	for _, info := range infos {
		if info.Source != chunk.SourceNote {
			continue
		}
		if info.DocumentTitle == p.title || seen[info.DocumentTitle] {
			continue
		}
		seen[info.DocumentTitle] = true

		chunks, err := p.index.GetByTitle(ctx, info.DocumentTitle)
		if err != nil {
			if errors.Is(err, knowledge.ErrNotFound) {
				continue
			}
			return "", fmt.Errorf("sampling %q: %w", info.DocumentTitle, err)
		}

		text := strings.TrimSpace(stripPrefix(chunks[0].Text))
		if text == "" {
			continue
		}
		if total+len(text) > styleSampleBudget {
			break
		}
		parts = append(parts, text)
		total += len(text)
	}

	return strings.Join(parts, "\n\n---\n\n"), nil
}

// Current returns the stored style guide, or ErrNotFound when none exists.
func (p *StyleProfiler) Current(ctx context.Context) (string, error) {
	chunks, err := p.index.GetByTitle(ctx, p.title)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = stripPrefix(ch.Text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n")), nil
}

// Clear removes the stored style guide.
func (p *StyleProfiler) Clear(ctx context.Context) error {
	_, err := p.index.DeleteDocument(ctx, StyleDocumentID)
	return err
}

func stylePrompt(sample string) string {
	return fmt.Sprintf(`Analyze the writing samples below and produce a concise style guide describing how this person writes: tone, vocabulary, sentence rhythm, formatting habits, and recurring quirks. Write the guide as direct instructions for imitating the style. Keep it under 300 words. Do not quote the samples.

Writing samples:

%s`, sample)
}
