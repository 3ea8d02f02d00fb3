package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/issuesync/internal/console"
	"github.com/danielolaszy/issuesync/internal/github"
	"github.com/danielolaszy/issuesync/internal/loader"
	"github.com/danielolaszy/issuesync/internal/logging"
	"github.com/danielolaszy/issuesync/internal/state"
	"github.com/danielolaszy/issuesync/internal/sync"
	"github.com/danielolaszy/issuesync/pkg/models"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize local issue definitions to GitHub",
	Long: `Synchronize local issue definitions to the GitHub issue tracker.

Each local issue is created or updated remotely so it mirrors the local
definition. Unchanged issues are skipped, so repeated runs are idempotent.
Use --dry-run to rehearse against an in-memory tracker without touching
GitHub, and --force to re-push every issue regardless of change detection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		issuesDir, _ := cmd.Flags().GetString("issues-dir")
		stateFile, _ := cmd.Flags().GetString("state-file")
		repository, _ := cmd.Flags().GetString("repository")
		noColor, _ := cmd.Flags().GetBool("no-color")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		force, _ := cmd.Flags().GetBool("force")

		if noColor {
			console.DisableColor()
		}
		out := console.New()

		out.Blank()
		out.Info("Issue Sync")
		out.Blank()

		source, err := loader.New(issuesDir)
		if err != nil {
			out.Error(err.Error())
			return err
		}

		owner, repo, err := resolveRepository(repository)
		if err != nil {
			out.Error(err.Error())
			out.Info("Use --repository owner/name to specify manually")
			return err
		}

		out.Info(fmt.Sprintf("Repository: %s/%s", owner, repo))
		out.Info(fmt.Sprintf("Dry run: %v", dryRun))
		out.Blank()

		var tracker sync.Tracker
		if dryRun {
			tracker = github.NewDryRunClient()
		} else {
			client, err := github.NewClient(owner, repo)
			if err != nil {
				out.Error(err.Error())
				return err
			}
			tracker = client
		}

		stateManager := state.NewManager(stateFile)
		syncer := sync.NewSyncer(tracker, source, stateManager, out)

		logging.Info("starting sync run",
			"repository", owner+"/"+repo,
			"dry_run", dryRun,
			"force", force)

		summary, err := syncer.Sync(force)
		if err != nil {
			var rateErr *github.RateLimitError
			if errors.As(err, &rateErr) {
				out.Error("Rate limited. Try again after " + rateErr.ResetAt.Format(time.RFC1123))
				return err
			}
			out.Error("Sync failed: " + err.Error())
			return err
		}

		out.Blank()
		out.Success(fmt.Sprintf("Sync complete: %d synced, %d skipped",
			summary[models.StatusCompleted], summary[models.StatusSkipped]))

		if failed := summary[models.StatusFailed]; failed > 0 {
			out.Warning(fmt.Sprintf("%d failed - run 'issuesync status' for details", failed))
			return fmt.Errorf("%d issues failed to sync", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("dry-run", false, "Preview changes against an in-memory tracker")
	syncCmd.Flags().Bool("force", false, "Re-sync all issues even if unchanged")
}

// resolveRepository picks the owner/name pair from the flag or, failing
// that, the local git remote.
func resolveRepository(flagValue string) (string, string, error) {
	if flagValue != "" {
		parts := strings.Split(flagValue, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", fmt.Errorf("invalid repository format: %s, expected owner/name", flagValue)
		}
		return parts[0], parts[1], nil
	}

	domain := os.Getenv("GITHUB_DOMAIN")
	if domain == "" {
		domain = "github.com"
	}
	return detectRepository(domain)
}
