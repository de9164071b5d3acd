package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pensieve-cli/pensieve/internal/app"
	"github.com/pensieve-cli/pensieve/internal/knowledge"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the personal profile note",
	Long: `Profile prints the note whose title matches the configured profile
title (default "Who am I?"). Its content is injected into every retrieval
context so answers stay grounded in who you are.`,
	RunE: withApp(runProfile),
}

func init() {
	rootCmd.AddCommand(profileCmd)
}

func runProfile(ctx context.Context, a *app.App, _ []string) error {
	chunks, err := a.Knowledge.GetByTitle(ctx, a.Config.ProfileTitle)
	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			printFaint("No profile note found. Create a note titled %q and sync.", a.Config.ProfileTitle)
			return nil
		}
		return err
	}

	printHeading("%s", a.Config.ProfileTitle)
	var b strings.Builder
	for _, ch := range chunks {
		b.WriteString(ch.Text)
		b.WriteString("\n\n")
	}
	fmt.Print(renderMarkdown(b.String()))
	return nil
}
