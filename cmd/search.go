package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pensieve-cli/pensieve/internal/app"
	"github.com/pensieve-cli/pensieve/internal/chunk"
	"github.com/pensieve-cli/pensieve/internal/knowledge"
	"github.com/pensieve-cli/pensieve/internal/rag"
)

var (
	searchTopK   int
	searchSource string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantic search over indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withApp(runSearch),
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 0, "number of results (0 = config default)")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "restrict to a source (note, conversation, style)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(ctx context.Context, a *app.App, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))

	embedding, err := a.Embedder.EmbedText(ctx, query)
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}

	opts := []knowledge.SearchOption{}
	if searchTopK > 0 {
		opts = append(opts, knowledge.WithTopK(searchTopK))
	} else {
		opts = append(opts, knowledge.WithTopK(a.Config.TopK))
	}
	if searchSource != "" {
		src := chunk.Source(searchSource)
		if !src.Valid() {
			return fmt.Errorf("unknown source %q, want note, conversation or style", searchSource)
		}
		opts = append(opts, knowledge.WithSource(src))
	}

	results, err := a.Knowledge.Search(ctx, embedding, opts...)
	if err != nil {
		return err
	}

	fmt.Println(rag.FormatSearchResults(results))
	return nil
}
