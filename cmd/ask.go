package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pensieve-cli/pensieve/internal/ai"
	"github.com/pensieve-cli/pensieve/internal/app"
	"github.com/pensieve-cli/pensieve/internal/rag"
)

var (
	askTopK          int
	askConversations bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question grounded in your notes",
	Args:  cobra.MinimumNArgs(1),
	RunE:  withApp(runAsk),
}

func init() {
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "number of chunks to retrieve (0 = config default)")
	askCmd.Flags().BoolVar(&askConversations, "conversations", true, "include past conversations in retrieval")
	rootCmd.AddCommand(askCmd)
}

func runAsk(ctx context.Context, a *app.App, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	// Refresh a stale index before answering; failures degrade to
	// answering from the existing index.
	a.Syncer.AutoSyncIfNeeded(ctx)

	retrieved, err := a.Retriever.BuildContext(ctx, question, rag.BuildOptions{
		TopK:                 askTopK,
		IncludeConversations: askConversations,
	})
	if err != nil {
		return err
	}
	if retrieved == "" {
		printFaint("(no relevant notes found, answering without context)")
	}

	answer, err := a.Completer.Complete(ctx, ai.BuildPrompt(retrieved, question))
	if err != nil {
		return err
	}

	fmt.Print(renderMarkdown(answer))
	return nil
}
