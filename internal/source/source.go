// Package source defines document sources and the connectors that read them.
//
// A Source produces documents to index. Connectors that can enumerate cheap
// metadata separately from full bodies additionally implement Incremental,
// which lets the sync coordinator skip unchanged documents without fetching
// their content.
package source

import "context"

// Document is a full document fetched from a source.
type Document struct {
	// ID is the source-scoped stable identifier.
	ID string

	// Title is the human-readable document title.
	Title string

	// Body is the full text content.
	Body string

	// Folder is the grouping the source places the document in, empty when
	// the source has no folders.
	Folder string

	// ModifiedAt is the source's modification timestamp, kept as the
	// source's own string form. Change detection compares these strings
	// verbatim; parsing timezone-ambiguous formats from external tools
	// creates more corruption than it prevents.
	ModifiedAt string
}

// Metadata is the cheap listing form of a document, used for change
// detection before fetching bodies.
type Metadata struct {
	ID         string
	Title      string
	Folder     string
	ModifiedAt string
}

// Source produces documents to index.
type Source interface {
	// Name identifies the source in logs and sync stats.
	Name() string

	// FetchAll returns up to limit documents, or all of them when
	// limit <= 0.
	FetchAll(ctx context.Context, limit int) ([]Document, error)
}

// Incremental is implemented by sources that can list metadata cheaply and
// fetch bodies selectively.
type Incremental interface {
	Source

	// ListMetadata returns metadata for every document without fetching
	// bodies.
	ListMetadata(ctx context.Context) ([]Metadata, error)

	// FetchByID fetches full documents for the given IDs.
	FetchByID(ctx context.Context, ids []string) ([]Document, error)
}
