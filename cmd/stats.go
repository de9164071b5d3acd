package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pensieve-cli/pensieve/internal/app"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  withApp(runStats),
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(ctx context.Context, a *app.App, _ []string) error {
	chunks, err := a.Knowledge.Count(ctx)
	if err != nil {
		return err
	}
	stats, err := a.Store.GetSyncStats(ctx)
	if err != nil {
		return err
	}

	printHeading("Index statistics")
	fmt.Printf("  documents: %d\n", stats.TotalDocuments)
	fmt.Printf("  chunks:    %d\n", chunks)
	for src, n := range stats.BySource {
		fmt.Printf("  %s: %d\n", src, n)
	}
	if stats.LastSyncedAt.IsZero() {
		printFaint("  never synced")
	} else {
		fmt.Printf("  last sync: %s\n", stats.LastSyncedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
