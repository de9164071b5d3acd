package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pensieve-cli/pensieve/internal/app"
)

var conversationsLimit int

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"convos"},
	Short:   "List recent chat conversations",
	RunE:    withApp(runConversations),
}

func init() {
	conversationsCmd.Flags().IntVar(&conversationsLimit, "limit", 10, "number of conversations to show")
	rootCmd.AddCommand(conversationsCmd)
}

func runConversations(ctx context.Context, a *app.App, _ []string) error {
	convos, err := a.Store.GetRecentConversations(ctx, conversationsLimit)
	if err != nil {
		return err
	}
	if len(convos) == 0 {
		printFaint("No conversations yet. Run 'pensieve chat' to start one.")
		return nil
	}

	printHeading("Recent conversations")
	for _, c := range convos {
		topic := c.Topic
		if topic == "" {
			topic = "(no topic)"
		}
		fmt.Printf("  %s  %-50s %d messages\n",
			c.UpdatedAt.Local().Format("2006-01-02 15:04"),
			truncateTitle(topic, 50), c.MessageCount)
	}
	return nil
}
