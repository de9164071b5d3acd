package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pensieve-cli/pensieve/internal/log"
)

// projectFiles are the documentation files indexed from each project.
var projectFiles = []string{"README.md", "TODO.md"}

// ProjectDocs indexes the README and TODO of every direct subdirectory of a
// projects directory. It gives retrieval awareness of what the user is
// currently building without indexing whole source trees.
type ProjectDocs struct {
	root   string
	logger log.Logger
}

// NewProjectDocs creates a connector over the given projects directory.
func NewProjectDocs(root string, logger log.Logger) *ProjectDocs {
	return &ProjectDocs{root: expandHome(root), logger: logger}
}

// Name implements Source.
func (p *ProjectDocs) Name() string { return "projects" }

// FetchAll implements Source. Projects without any of the documentation
// files are silently skipped.
func (p *ProjectDocs) FetchAll(ctx context.Context, limit int) ([]Document, error) {
	dirs, err := os.ReadDir(p.root)
	if err != nil {
		if os.IsNotExist(err) {
			p.logger.Warn("projects directory does not exist, skipping", "root", p.root)
			return nil, nil
		}
		return nil, fmt.Errorf("reading projects directory %s: %w", p.root, err)
	}

	var docs []Document
	for _, dir := range dirs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !dir.IsDir() || dir.Name() == "" || dir.Name()[0] == '.' {
			continue
		}

		for _, fileName := range projectFiles {
			path := filepath.Join(p.root, dir.Name(), fileName)
			info, err := os.Stat(path)
			if err != nil {
				continue
			}

			body, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}

			docs = append(docs, Document{
				ID:         documentID(path),
				Title:      dir.Name() + "/" + fileName,
				Body:       string(body),
				Folder:     dir.Name(),
				ModifiedAt: info.ModTime().UTC().Format(time.RFC3339),
			})

			if limit > 0 && len(docs) >= limit {
				return docs, nil
			}
		}
	}
	return docs, nil
}
