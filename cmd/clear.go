package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pensieve-cli/pensieve/internal/app"
)

var (
	clearConversations bool
	clearYes           bool
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all indexed documents and sync records",
	RunE:  withApp(runClear),
}

func init() {
	clearCmd.Flags().BoolVar(&clearConversations, "conversations", false, "also delete chat history")
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}

func runClear(ctx context.Context, a *app.App, _ []string) error {
	if !clearYes {
		target := "the entire index"
		if clearConversations {
			target = "the entire index and all chat history"
		}
		fmt.Printf("This deletes %s. Continue? [y/N] ", target)
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return nil
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	removed, err := a.Knowledge.Clear(ctx)
	if err != nil {
		return err
	}
	if err := a.Store.ClearSyncRecords(ctx); err != nil {
		return err
	}
	if clearConversations {
		if err := a.Store.ClearConversations(ctx); err != nil {
			return err
		}
	}

	fmt.Printf("Cleared %d chunks.\n", removed)
	return nil
}
