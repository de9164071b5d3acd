package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/pensieve-cli/pensieve/internal/log"
)

// notionHashSuffix matches the 32-hex-digit suffix Notion appends to
// exported filenames, e.g. "Reading List 0a1b2c...d.md".
var notionHashSuffix = regexp.MustCompile(` [0-9a-f]{32}$`)

// MarkdownTree reads .md files from one or more directory trees.
// Each tree's .gitignore (when present) is honored, and hidden directories
// are skipped. It implements Incremental: listing is stat-only, bodies are
// read on demand.
type MarkdownTree struct {
	roots  []string
	logger log.Logger
}

// NewMarkdownTree creates a connector over the given root directories.
func NewMarkdownTree(roots []string, logger log.Logger) *MarkdownTree {
	return &MarkdownTree{roots: roots, logger: logger}
}

// Name implements Source.
func (m *MarkdownTree) Name() string { return "markdown" }

// entry is one discovered markdown file.
type entry struct {
	path string
	meta Metadata
}

// walk discovers every markdown file under the configured roots.
func (m *MarkdownTree) walk(ctx context.Context) ([]entry, error) {
	var entries []entry
	for _, root := range m.roots {
		root = expandHome(root)

		var matcher *ignore.GitIgnore
		if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
			matcher = gi
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}

			if d.IsDir() {
				if rel != "." && (strings.HasPrefix(d.Name(), ".") || (matcher != nil && matcher.MatchesPath(rel+"/"))) {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.EqualFold(filepath.Ext(path), ".md") {
				return nil
			}
			if matcher != nil && matcher.MatchesPath(rel) {
				return nil
			}

			info, infoErr := d.Info()
			if infoErr != nil {
				return infoErr
			}

			entries = append(entries, entry{
				path: path,
				meta: Metadata{
					ID:         documentID(path),
					Title:      titleFromFilename(d.Name()),
					Folder:     filepath.Dir(rel),
					ModifiedAt: info.ModTime().UTC().Format(time.RFC3339),
				},
			})
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				m.logger.Warn("markdown root does not exist, skipping", "root", root)
				continue
			}
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}
	return entries, nil
}

// ListMetadata implements Incremental.
func (m *MarkdownTree) ListMetadata(ctx context.Context) ([]Metadata, error) {
	entries, err := m.walk(ctx)
	if err != nil {
		return nil, err
	}
	metas := make([]Metadata, len(entries))
	for i, e := range entries {
		metas[i] = e.meta
	}
	return metas, nil
}

// FetchByID implements Incremental.
func (m *MarkdownTree) FetchByID(ctx context.Context, ids []string) ([]Document, error) {
	entries, err := m.walk(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var docs []Document
	for _, e := range entries {
		if !wanted[e.meta.ID] {
			continue
		}
		doc, err := m.read(e)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// FetchAll implements Source.
func (m *MarkdownTree) FetchAll(ctx context.Context, limit int) ([]Document, error) {
	entries, err := m.walk(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	docs := make([]Document, 0, len(entries))
	for _, e := range entries {
		doc, err := m.read(e)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *MarkdownTree) read(e entry) (Document, error) {
	body, err := os.ReadFile(e.path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", e.path, err)
	}
	return Document{
		ID:         e.meta.ID,
		Title:      e.meta.Title,
		Body:       string(body),
		Folder:     e.meta.Folder,
		ModifiedAt: e.meta.ModifiedAt,
	}, nil
}

// documentID derives a stable ID from the absolute file path. Renaming or
// moving a file intentionally produces a new document.
func documentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(abs))
	return "md-" + hex.EncodeToString(sum[:8])
}

// titleFromFilename strips the .md extension and any Notion export hash
// suffix.
func titleFromFilename(name string) string {
	title := strings.TrimSuffix(name, filepath.Ext(name))
	return notionHashSuffix.ReplaceAllString(title, "")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
