package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pensieve-cli/pensieve/internal/log"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestMarkdownTreeFetchAll(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ideas.md"), "# Ideas\n\nBuild a tea timer.")
	writeFile(t, filepath.Join(root, "journal", "2026-06-03.md"), "Rainy day.")
	writeFile(t, filepath.Join(root, "notes.txt"), "not markdown")

	tree := NewMarkdownTree([]string{root}, log.NewNop())
	docs, err := tree.FetchAll(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchAll() = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2: %+v", len(docs), docs)
	}

	byTitle := make(map[string]Document)
	for _, d := range docs {
		byTitle[d.Title] = d
	}

	ideas, ok := byTitle["ideas"]
	if !ok {
		t.Fatalf("missing ideas doc: %+v", byTitle)
	}
	if ideas.Body != "# Ideas\n\nBuild a tea timer." {
		t.Errorf("ideas body = %q", ideas.Body)
	}
	if ideas.Folder != "." {
		t.Errorf("ideas folder = %q, want %q", ideas.Folder, ".")
	}
	if ideas.ID == "" || ideas.ModifiedAt == "" {
		t.Errorf("missing ID or ModifiedAt: %+v", ideas)
	}

	journal := byTitle["2026-06-03"]
	if journal.Folder != "journal" {
		t.Errorf("journal folder = %q, want %q", journal.Folder, "journal")
	}
}

func TestMarkdownTreeGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), "drafts/\nsecret.md\n")
	writeFile(t, filepath.Join(root, "kept.md"), "keep me")
	writeFile(t, filepath.Join(root, "secret.md"), "ignore me")
	writeFile(t, filepath.Join(root, "drafts", "wip.md"), "ignore me too")
	writeFile(t, filepath.Join(root, ".obsidian", "config.md"), "hidden dir")

	tree := NewMarkdownTree([]string{root}, log.NewNop())
	docs, err := tree.FetchAll(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchAll() = %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "kept" {
		t.Fatalf("got %+v, want only kept.md", docs)
	}
}

func TestMarkdownTreeMissingRoot(t *testing.T) {
	tree := NewMarkdownTree([]string{filepath.Join(t.TempDir(), "nope")}, log.NewNop())
	docs, err := tree.FetchAll(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchAll() = %v, want missing root skipped", err)
	}
	if len(docs) != 0 {
		t.Errorf("got %d docs, want 0", len(docs))
	}
}

func TestMarkdownTreeIncremental(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "alpha")
	writeFile(t, filepath.Join(root, "b.md"), "beta")

	tree := NewMarkdownTree([]string{root}, log.NewNop())

	metas, err := tree.ListMetadata(context.Background())
	if err != nil {
		t.Fatalf("ListMetadata() = %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d metas, want 2", len(metas))
	}

	var aID string
	for _, m := range metas {
		if m.Title == "a" {
			aID = m.ID
		}
	}
	if aID == "" {
		t.Fatal("no metadata for a.md")
	}

	docs, err := tree.FetchByID(context.Background(), []string{aID})
	if err != nil {
		t.Fatalf("FetchByID() = %v", err)
	}
	if len(docs) != 1 || docs[0].Body != "alpha" {
		t.Fatalf("FetchByID() = %+v, want a.md only", docs)
	}
}

func TestMarkdownTreeStableIDs(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "stable.md")
	writeFile(t, path, "v1")

	tree := NewMarkdownTree([]string{root}, log.NewNop())
	first, err := tree.ListMetadata(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Content changes must not change the ID.
	writeFile(t, path, "v2 with new content")
	second, err := tree.ListMetadata(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if first[0].ID != second[0].ID {
		t.Errorf("ID changed across edits: %q vs %q", first[0].ID, second[0].ID)
	}
}

func TestTitleFromFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ideas.md", "ideas"},
		{"Reading List 0123456789abcdef0123456789abcdef.md", "Reading List"},
		{"no extension", "no extension"},
		{"short hash 0123.md", "short hash 0123"},
	}
	for _, tt := range tests {
		if got := titleFromFilename(tt.in); got != tt.want {
			t.Errorf("titleFromFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
