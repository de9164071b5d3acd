package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pensieve-cli/pensieve/internal/app"
	"github.com/pensieve-cli/pensieve/internal/knowledge"
	"github.com/pensieve-cli/pensieve/internal/rag"
)

var styleCmd = &cobra.Command{
	Use:   "style",
	Short: "Manage the writing style profile",
	Long: `Style analyzes your own notes and distills a writing style guide.
The guide is indexed and used to shape generated answers.`,
}

var styleGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Analyze notes and regenerate the style guide",
	RunE:  withApp(runStyleGenerate),
}

var styleShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current style guide",
	RunE:  withApp(runStyleShow),
}

var styleClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the style guide",
	RunE:  withApp(runStyleClear),
}

func init() {
	styleCmd.AddCommand(styleGenerateCmd, styleShowCmd, styleClearCmd)
	rootCmd.AddCommand(styleCmd)
}

func runStyleGenerate(ctx context.Context, a *app.App, _ []string) error {
	printFaint("Analyzing your notes...")
	guide, err := a.Profiler.Generate(ctx)
	if err != nil {
		if errors.Is(err, rag.ErrNoWritingSamples) {
			printFaint("No notes to learn from yet. Run 'pensieve sync' first.")
			return nil
		}
		return err
	}

	printHeading("Style guide generated")
	fmt.Print(renderMarkdown(guide))
	return nil
}

func runStyleShow(ctx context.Context, a *app.App, _ []string) error {
	guide, err := a.Profiler.Current(ctx)
	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			printFaint("No style guide yet. Run 'pensieve style generate'.")
			return nil
		}
		return err
	}
	fmt.Print(renderMarkdown(guide))
	return nil
}

func runStyleClear(ctx context.Context, a *app.App, _ []string) error {
	if err := a.Profiler.Clear(ctx); err != nil {
		return err
	}
	fmt.Println("Style guide deleted.")
	return nil
}
