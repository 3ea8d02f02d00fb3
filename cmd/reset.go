package cmd

import (
	"github.com/spf13/cobra"

	"github.com/danielolaszy/issuesync/internal/console"
	"github.com/danielolaszy/issuesync/internal/state"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the persisted sync state",
	Long: `Delete the sync state file so the next run starts fresh. Remote
issues are untouched; change detection against their bodies still prevents
redundant updates after a reset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stateFile, _ := cmd.Flags().GetString("state-file")
		noColor, _ := cmd.Flags().GetBool("no-color")

		if noColor {
			console.DisableColor()
		}
		out := console.New()

		stateManager := state.NewManager(stateFile)
		if err := stateManager.Reset(); err != nil {
			out.Error(err.Error())
			return err
		}
		out.Success("State cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
