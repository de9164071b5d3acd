package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pensieve-cli/pensieve/internal/app"
	"github.com/pensieve-cli/pensieve/internal/config"
	"github.com/pensieve-cli/pensieve/internal/log"
)

// withApp wraps a command body with the full setup and teardown: config,
// logger, migrations, pool, Gemini client.
func withApp(run func(ctx context.Context, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := checkAPIKey(); err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		logger := log.New(log.Config{Level: cfg.Level()})

		a, err := app.Setup(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		return run(ctx, a, args)
	}
}

// checkAPIKey fails early with an actionable message instead of a deep
// genkit error when the Gemini key is missing.
func checkAPIKey() error {
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		return nil
	}
	fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Get a key at https://aistudio.google.com and run:")
	fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
	return fmt.Errorf("GEMINI_API_KEY not set")
}
