package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/issuesync/internal/console"
	"github.com/danielolaszy/issuesync/internal/state"
	"github.com/danielolaszy/issuesync/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the last sync run",
	Long: `Show the persisted state of the last sync run without making any
changes or network calls: run id, timestamps, per-status counts, and the
stored error text of any failed issues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stateFile, _ := cmd.Flags().GetString("state-file")
		noColor, _ := cmd.Flags().GetBool("no-color")

		if noColor {
			console.DisableColor()
		}
		out := console.New()

		stateManager := state.NewManager(stateFile)
		syncState := stateManager.State()
		summary := stateManager.Summary()

		out.Info("Run ID: " + syncState.RunID)
		out.Info("Started: " + syncState.StartedAt.Format(time.RFC3339))
		if syncState.CompletedAt != nil {
			out.Success("Completed: " + syncState.CompletedAt.Format(time.RFC3339))
		} else {
			out.Warning("Not completed")
		}

		out.Blank()
		out.Info(fmt.Sprintf("Completed: %d", summary[models.StatusCompleted]))
		out.Info(fmt.Sprintf("Pending:   %d", summary[models.StatusPending]))
		out.Info(fmt.Sprintf("Failed:    %d", summary[models.StatusFailed]))
		out.Info(fmt.Sprintf("Skipped:   %d", summary[models.StatusSkipped]))

		var failed []*models.SyncRecord
		for _, record := range syncState.Records {
			if record.Status == models.StatusFailed {
				failed = append(failed, record)
			}
		}
		if len(failed) > 0 {
			out.Blank()
			out.Error("Failed issues:")
			for _, record := range failed {
				out.Error(fmt.Sprintf("  %s: %s", record.IssueID, record.Error))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
