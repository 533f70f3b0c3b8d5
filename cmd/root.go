// Package cmd implements the dock command line.
package cmd

import (
	"github.com/grovetools/dock/cli"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the dock command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := cli.NewStandardCommand(
		"dock",
		"Discover and launch local apps from a folder of app directories",
	)
	rootCmd.Long = `dock scans a folder whose subfolders are named <category>-<name>, groups
them by category and starts their entry point with the configured
interpreter. Framework apps are started in run mode and dock waits for the
address they announce.

Commands talk to the daemon when 'dock serve' is running and fall back to
running in-process otherwise.`

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newLastCmd())
	rootCmd.AddCommand(newInterpreterCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newPathsCmd())
	rootCmd.AddCommand(cli.NewVersionCommand("dock"))

	return rootCmd
}
