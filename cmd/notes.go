package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pensieve-cli/pensieve/internal/app"
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "List indexed documents",
	RunE:  withApp(runNotes),
}

func init() {
	rootCmd.AddCommand(notesCmd)
}

func runNotes(ctx context.Context, a *app.App, _ []string) error {
	infos, err := a.Knowledge.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		printFaint("No documents indexed yet. Run 'pensieve sync' first.")
		return nil
	}

	printHeading("%d indexed documents", len(infos))
	for _, info := range infos {
		fmt.Printf("  %-50s %-12s %d chunks\n",
			truncateTitle(info.DocumentTitle, 50), info.Source, info.ChunkCount)
	}
	return nil
}

func truncateTitle(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
