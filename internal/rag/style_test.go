package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pensieve-cli/pensieve/internal/chunk"
	"github.com/pensieve-cli/pensieve/internal/knowledge"
	"github.com/pensieve-cli/pensieve/internal/log"
)

type fakeCompleter struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func newProfiler(index *fakeIndex, completer *fakeCompleter) *StyleProfiler {
	return NewStyleProfiler(index, fakeEmbedder{}, completer, chunk.New(512, 50), "My Writing Style", log.NewNop())
}

func seedNotes(index *fakeIndex) {
	index.documents = []knowledge.DocumentInfo{
		{DocumentID: "n1", DocumentTitle: "Tea", Source: chunk.SourceNote, ChunkCount: 1},
		{DocumentID: "n2", DocumentTitle: "Trips", Source: chunk.SourceNote, ChunkCount: 2},
		{DocumentID: "c1", DocumentTitle: "chat", Source: chunk.SourceConversation, ChunkCount: 1},
	}
	index.byTitle["Tea"] = []chunk.Chunk{{Text: "[Note: Tea]\n\nSencha notes in my own voice."}}
	index.byTitle["Trips"] = []chunk.Chunk{
		{Text: "[Note: Trips]\n\nKyoto plans, casually written."},
		{Text: "[Note: Trips]\n\nSecond chunk should not be sampled."},
	}
	index.byTitle["chat"] = []chunk.Chunk{{Text: "[Conversation: chat]\n\nUser: hi"}}
}

func TestStyleGenerate(t *testing.T) {
	index := newFakeIndex()
	seedNotes(index)
	completer := &fakeCompleter{response: "Write tersely. Prefer concrete nouns."}
	p := newProfiler(index, completer)

	guide, err := p.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() = %v", err)
	}
	if guide != "Write tersely. Prefer concrete nouns." {
		t.Errorf("guide = %q", guide)
	}

	// The prompt carries note samples, not conversations, and only first
	// chunks.
	prompt := completer.prompts[0]
	if !strings.Contains(prompt, "Sencha notes in my own voice.") {
		t.Errorf("prompt missing note sample:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Kyoto plans, casually written.") {
		t.Errorf("prompt missing second note:\n%s", prompt)
	}
	if strings.Contains(prompt, "Second chunk") {
		t.Errorf("prompt sampled beyond first chunk:\n%s", prompt)
	}
	if strings.Contains(prompt, "User: hi") {
		t.Errorf("prompt sampled a conversation:\n%s", prompt)
	}
	if !strings.Contains(prompt, "under 300 words") {
		t.Errorf("prompt missing length cap:\n%s", prompt)
	}

	// The guide lands in the index under the fixed document ID.
	if len(index.upserted) == 0 {
		t.Fatal("guide not indexed")
	}
	got := index.upserted[0]
	if got.DocumentID != StyleDocumentID || got.Source != chunk.SourceStyle || got.DocumentTitle != "My Writing Style" {
		t.Errorf("indexed chunk = %+v", got)
	}
	if keep, ok := index.pruned[StyleDocumentID]; !ok || keep != len(index.upserted) {
		t.Errorf("pruned = %v", index.pruned)
	}
}

func TestStyleGenerateNoSamples(t *testing.T) {
	p := newProfiler(newFakeIndex(), &fakeCompleter{response: "x"})

	_, err := p.Generate(context.Background())
	if !errors.Is(err, ErrNoWritingSamples) {
		t.Fatalf("Generate() = %v, want ErrNoWritingSamples", err)
	}
}

func TestStyleGenerateCompleterError(t *testing.T) {
	index := newFakeIndex()
	seedNotes(index)
	p := newProfiler(index, &fakeCompleter{err: errors.New("model unavailable")})

	if _, err := p.Generate(context.Background()); err == nil {
		t.Fatal("Generate() = nil, want error")
	}
	if len(index.upserted) != 0 {
		t.Error("failed generation still wrote to the index")
	}
}

func TestStyleGenerateSkipsOwnGuide(t *testing.T) {
	index := newFakeIndex()
	seedNotes(index)
	// A previous guide is indexed as a note-titled document.
	index.documents = append(index.documents, knowledge.DocumentInfo{
		DocumentID: StyleDocumentID, DocumentTitle: "My Writing Style", Source: chunk.SourceStyle,
	})
	index.byTitle["My Writing Style"] = []chunk.Chunk{{Text: "old guide"}}

	completer := &fakeCompleter{response: "new guide"}
	p := newProfiler(index, completer)

	if _, err := p.Generate(context.Background()); err != nil {
		t.Fatalf("Generate() = %v", err)
	}
	if strings.Contains(completer.prompts[0], "old guide") {
		t.Error("previous guide leaked into the sample")
	}
}

func TestStyleCurrent(t *testing.T) {
	index := newFakeIndex()
	index.byTitle["My Writing Style"] = []chunk.Chunk{
		{Text: "[Note: My Writing Style]\n\nPart one."},
		{Text: "[Note: My Writing Style]\n\nPart two."},
	}
	p := newProfiler(index, &fakeCompleter{})

	got, err := p.Current(context.Background())
	if err != nil {
		t.Fatalf("Current() = %v", err)
	}
	if got != "Part one.\n\nPart two." {
		t.Errorf("Current() = %q", got)
	}
}

func TestStyleCurrentMissing(t *testing.T) {
	p := newProfiler(newFakeIndex(), &fakeCompleter{})

	_, err := p.Current(context.Background())
	if !errors.Is(err, knowledge.ErrNotFound) {
		t.Fatalf("Current() = %v, want ErrNotFound", err)
	}
}

func TestStyleClear(t *testing.T) {
	index := newFakeIndex()
	p := newProfiler(index, &fakeCompleter{})

	if err := p.Clear(context.Background()); err != nil {
		t.Fatalf("Clear() = %v", err)
	}
	if len(index.deleted) != 1 || index.deleted[0] != StyleDocumentID {
		t.Errorf("deleted = %v", index.deleted)
	}
}
