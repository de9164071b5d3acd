package rag

import (
	"fmt"
	"math"
	"strings"

	"github.com/pensieve-cli/pensieve/internal/knowledge"
)

// displayTruncate bounds chunk text in search listings.
const displayTruncate = 200

// FormatSearchResults renders search results for terminal display.
// Relevance maps cosine distance d to 100/(1+d) percent, so identical
// vectors show 100% and unrelated ones fall toward 50%.
func FormatSearchResults(results []knowledge.SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var b strings.Builder
	for i, res := range results {
		fmt.Fprintf(&b, "%d. %s (%s, relevance %s)\n", i+1, res.DocumentTitle, res.Source, relevance(res.Distance))
		fmt.Fprintf(&b, "   %s\n", truncate(strings.ReplaceAll(stripPrefix(res.Text), "\n", " "), displayTruncate))
		if i < len(results)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// relevance converts a cosine distance to a display percentage. NaN
// distances (zero-magnitude vectors) render as N/A rather than poisoning
// the output.
func relevance(distance float64) string {
	if math.IsNaN(distance) {
		return "N/A"
	}
	return fmt.Sprintf("%.0f%%", 100/(1+distance))
}
