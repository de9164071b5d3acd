package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pensieve-cli/pensieve/internal/app"
	"github.com/pensieve-cli/pensieve/internal/syncer"
)

var (
	syncLimit int
	syncClear bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Index new and changed documents",
	Long: `Sync pulls documents from the configured sources (Apple Notes,
markdown directories, project docs), detects changes against the last sync,
and indexes changed documents into the knowledge store.`,
	RunE: withApp(runSync),
}

func init() {
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "cap documents per source (0 = no cap)")
	syncCmd.Flags().BoolVar(&syncClear, "clear", false, "wipe the index first and re-sync everything")
	rootCmd.AddCommand(syncCmd)
}

func runSync(ctx context.Context, a *app.App, _ []string) error {
	result, err := a.Syncer.Sync(ctx, syncer.Options{Limit: syncLimit, Clear: syncClear})
	if err != nil {
		return err
	}

	printHeading("Sync complete in %s", result.Duration.Round(10*time.Millisecond))
	fmt.Printf("  scanned: %d   indexed: %d   skipped: %d   chunks: %d\n",
		result.Scanned, result.Indexed, result.Skipped, result.Chunks)
	for name, n := range result.BySource {
		fmt.Printf("  %s: %d documents\n", name, n)
	}
	return nil
}
