package source

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pensieve-cli/pensieve/internal/log"
)

const (
	// fieldSep and noteSep delimit AppleScript output. Notes content never
	// contains these strings in practice; they are long enough that a
	// collision would require deliberate effort.
	fieldSep = "<<<SEP>>>"
	noteSep  = "<<<NOTE>>>"

	// notesBatchSize bounds how many note bodies one AppleScript
	// invocation fetches. Larger batches make Notes.app unresponsive.
	notesBatchSize = 25
)

// Notes reads documents from the macOS Notes application via osascript.
// It implements Incremental: listing id/title/date for every note is fast,
// while fetching bodies is slow and done in batches only for changed notes.
type Notes struct {
	runner  Runner
	logger  log.Logger
	limiter *rate.Limiter
}

// NewNotes creates a Notes connector. Batch fetches are paced at one
// AppleScript invocation per second to keep Notes.app responsive.
func NewNotes(runner Runner, logger log.Logger) *Notes {
	return &Notes{
		runner:  runner,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
}

// Name implements Source.
func (n *Notes) Name() string { return "notes" }

// listScript enumerates every note's id, title, folder and modification
// date without touching bodies.
const listScript = `
tell application "Notes"
	set output to ""
	repeat with f in folders
		set folderName to name of f
		repeat with n in notes of f
			set output to output & (id of n) & "<<<SEP>>>" & (name of n) & "<<<SEP>>>" & folderName & "<<<SEP>>>" & ((modification date of n) as string) & "<<<NOTE>>>"
		end repeat
	end repeat
	return output
end tell`

// ListMetadata implements Incremental.
func (n *Notes) ListMetadata(ctx context.Context) ([]Metadata, error) {
	out, err := n.runner.Run(ctx, "osascript", "-e", listScript)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	var metas []Metadata
	for _, record := range strings.Split(out, noteSep) {
		fields := strings.Split(record, fieldSep)
		if len(fields) != 4 {
			continue
		}
		metas = append(metas, Metadata{
			ID:         strings.TrimSpace(fields[0]),
			Title:      strings.TrimSpace(fields[1]),
			Folder:     strings.TrimSpace(fields[2]),
			ModifiedAt: strings.TrimSpace(fields[3]),
		})
	}

	n.logger.Debug("listed notes metadata", "count", len(metas))
	return metas, nil
}

// FetchByID implements Incremental. IDs are fetched in batches, one
// AppleScript invocation per batch, paced by the rate limiter.
func (n *Notes) FetchByID(ctx context.Context, ids []string) ([]Document, error) {
	var docs []Document
	for start := 0; start < len(ids); start += notesBatchSize {
		end := min(start+notesBatchSize, len(ids))

		if err := n.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}

		batch, err := n.fetchBatch(ctx, ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("fetching notes batch %d-%d: %w", start, end, err)
		}
		docs = append(docs, batch...)

		n.logger.Debug("fetched notes batch",
			"from", start, "to", end, "total", len(ids))
	}
	return docs, nil
}

func (n *Notes) fetchBatch(ctx context.Context, ids []string) ([]Document, error) {
	var quoted []string
	for _, id := range ids {
		quoted = append(quoted, `"`+escapeAppleScript(id)+`"`)
	}

	script := fmt.Sprintf(`
tell application "Notes"
	set output to ""
	repeat with noteID in {%s}
		set n to note id noteID
		set output to output & (id of n) & "<<<SEP>>>" & (name of n) & "<<<SEP>>>" & ((modification date of n) as string) & "<<<SEP>>>" & (body of n) & "<<<NOTE>>>"
	end repeat
	return output
end tell`, strings.Join(quoted, ", "))

	out, err := n.runner.Run(ctx, "osascript", "-e", script)
	if err != nil {
		return nil, err
	}

	var docs []Document
	for _, record := range strings.Split(out, noteSep) {
		fields := strings.SplitN(record, fieldSep, 4)
		if len(fields) != 4 {
			continue
		}
		docs = append(docs, Document{
			ID:         strings.TrimSpace(fields[0]),
			Title:      strings.TrimSpace(fields[1]),
			ModifiedAt: strings.TrimSpace(fields[2]),
			Body:       htmlToText(fields[3]),
		})
	}
	return docs, nil
}

// FetchAll implements Source by listing metadata and fetching every body.
func (n *Notes) FetchAll(ctx context.Context, limit int) ([]Document, error) {
	metas, err := n.ListMetadata(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(metas) > limit {
		metas = metas[:limit]
	}

	ids := make([]string, len(metas))
	folders := make(map[string]string, len(metas))
	for i, m := range metas {
		ids[i] = m.ID
		folders[m.ID] = m.Folder
	}

	docs, err := n.FetchByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	// Folder is only visible in the listing phase.
	for i := range docs {
		docs[i].Folder = folders[docs[i].ID]
	}
	return docs, nil
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

var (
	brTags  = regexp.MustCompile(`(?i)<br\s*/?>|</div>|</p>|</li>`)
	anyTag  = regexp.MustCompile(`<[^>]*>`)
	multiNL = regexp.MustCompile(`\n{3,}`)
)

// htmlToText flattens the HTML body Notes.app returns into plain text.
func htmlToText(s string) string {
	s = brTags.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = multiNL.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
