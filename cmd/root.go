// Package cmd provides the command-line interface for the issuesync tool.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "issuesync",
	Short: "issuesync mirrors local issue definitions to GitHub",
	Long: `issuesync synchronizes a directory tree of locally authored issue
definitions (epics and stories) to a GitHub repository's issue tracker.

Local definitions are the source of truth: the tool creates or updates the
corresponding GitHub issues and never pulls remote edits back. Runs are
idempotent and resumable; interrupted or failed runs pick up where they left
off on the next invocation.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("issues-dir", ".github/issues", "Path to the issues directory")
	rootCmd.PersistentFlags().String("state-file", ".github/.sync-state.json", "Path to the sync state file")
	rootCmd.PersistentFlags().StringP("repository", "r", "", "GitHub repository in owner/name format (default: from git remote)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
}
