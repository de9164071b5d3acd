package source

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pensieve-cli/pensieve/internal/log"
)

func TestProjectDocsFetchAll(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "teatimer", "README.md"), "# Tea Timer\n\nA CLI timer.")
	writeFile(t, filepath.Join(root, "teatimer", "TODO.md"), "- add gyokuro preset")
	writeFile(t, filepath.Join(root, "teatimer", "main.go"), "package main")
	writeFile(t, filepath.Join(root, "empty-project", "notes.txt"), "no docs here")
	writeFile(t, filepath.Join(root, ".git", "README.md"), "hidden")

	p := NewProjectDocs(root, log.NewNop())
	docs, err := p.FetchAll(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchAll() = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2: %+v", len(docs), docs)
	}

	titles := map[string]bool{}
	for _, d := range docs {
		titles[d.Title] = true
		if d.Folder != "teatimer" {
			t.Errorf("Folder = %q, want teatimer", d.Folder)
		}
		if d.ID == "" || d.ModifiedAt == "" {
			t.Errorf("missing ID or ModifiedAt: %+v", d)
		}
	}
	if !titles["teatimer/README.md"] || !titles["teatimer/TODO.md"] {
		t.Errorf("titles = %v", titles)
	}
}

func TestProjectDocsLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "README.md"), "a")
	writeFile(t, filepath.Join(root, "b", "README.md"), "b")

	p := NewProjectDocs(root, log.NewNop())
	docs, err := p.FetchAll(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchAll() = %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("got %d docs, want 1", len(docs))
	}
}

func TestProjectDocsMissingRoot(t *testing.T) {
	p := NewProjectDocs(filepath.Join(t.TempDir(), "nope"), log.NewNop())
	docs, err := p.FetchAll(context.Background(), 0)
	if err != nil {
		t.Fatalf("FetchAll() = %v, want missing root skipped", err)
	}
	if docs != nil {
		t.Errorf("docs = %v, want nil", docs)
	}
}
