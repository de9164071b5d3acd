// Package cmd implements the pensieve command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pensieve",
	Short: "Pensieve - your notes, searchable and conversational",
	Long: `Pensieve indexes your notes, markdown files and project docs into a
local vector store and answers questions grounded in them.

Running pensieve without a subcommand starts an interactive chat.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
