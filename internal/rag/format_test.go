package rag

import (
	"math"
	"strings"
	"testing"

	"github.com/pensieve-cli/pensieve/internal/chunk"
	"github.com/pensieve-cli/pensieve/internal/knowledge"
)

func TestFormatSearchResultsEmpty(t *testing.T) {
	if got := FormatSearchResults(nil); got != "No results found." {
		t.Errorf("FormatSearchResults(nil) = %q", got)
	}
}

func TestFormatSearchResults(t *testing.T) {
	results := []knowledge.SearchResult{
		noteResult("n1", "Tea", "Sencha brewing basics.", 0),
		noteResult("n2", "Trips", "Kyoto in autumn.", 1),
	}

	got := FormatSearchResults(results)

	if !strings.Contains(got, "1. Tea (note, relevance 100%)") {
		t.Errorf("distance 0 should be 100%%:\n%s", got)
	}
	if !strings.Contains(got, "2. Trips (note, relevance 50%)") {
		t.Errorf("distance 1 should be 50%%:\n%s", got)
	}
	if !strings.Contains(got, "Sencha brewing basics.") {
		t.Errorf("missing content:\n%s", got)
	}
	// Title prefixes do not appear in listings.
	if strings.Contains(got, "[Note:") {
		t.Errorf("prefix leaked:\n%s", got)
	}
}

func TestFormatSearchResultsNaN(t *testing.T) {
	results := []knowledge.SearchResult{
		noteResult("n1", "Tea", "text", math.NaN()),
	}

	got := FormatSearchResults(results)
	if !strings.Contains(got, "relevance N/A") {
		t.Errorf("NaN distance should render N/A:\n%s", got)
	}
	if strings.Contains(got, "NaN") {
		t.Errorf("raw NaN leaked:\n%s", got)
	}
}

func TestFormatSearchResultsTruncates(t *testing.T) {
	long := strings.Repeat("word ", 100) // 500 chars
	results := []knowledge.SearchResult{
		noteResult("n1", "Long", long, 0.2),
	}

	got := FormatSearchResults(results)
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 220 {
			t.Errorf("line exceeds display budget: %d chars", len(line))
		}
	}
	if !strings.Contains(got, "...") {
		t.Errorf("no truncation marker:\n%s", got)
	}
}

func TestFormatSearchResultsFlattensNewlines(t *testing.T) {
	results := []knowledge.SearchResult{
		{
			Chunk:    chunk.Chunk{Text: "[Note: X]\n\nline one\nline two", DocumentTitle: "X", Source: chunk.SourceNote},
			Distance: 0.1,
		},
	}

	got := FormatSearchResults(results)
	if !strings.Contains(got, "line one line two") {
		t.Errorf("newlines not flattened:\n%s", got)
	}
}
