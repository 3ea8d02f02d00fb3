// Package sync plans and executes the reconciliation of local issue
// definitions against a remote tracker.
package sync

import (
	"github.com/danielolaszy/issuesync/internal/loader"
	"github.com/danielolaszy/issuesync/pkg/models"
)

// Tracker is the capability the sync engine needs from a remote issue
// tracker. The live GitHub client and the in-memory dry-run client both
// satisfy it, so rehearsal runs exercise identical planning and execution
// logic.
type Tracker interface {
	ListIssues(state string) ([]models.GitHubIssue, error)
	GetIssue(number int) (*models.GitHubIssue, error)
	CreateIssue(title, body string, labels []string, milestone *int) (*models.GitHubIssue, error)
	UpdateIssue(number int, update models.IssueUpdate) (*models.GitHubIssue, error)

	ListMilestones(state string) ([]models.GitHubMilestone, error)
	CreateMilestone(title, description string) (*models.GitHubMilestone, error)

	ListLabels() ([]models.GitHubLabel, error)
	CreateLabel(name, color, description string) (*models.GitHubLabel, error)
	UpdateLabel(name string, update models.LabelUpdate) (*models.GitHubLabel, error)
}

// Source supplies the locally authored definitions for one run.
type Source interface {
	LoadAllIssues() ([]*models.Issue, error)
	LoadLabels() ([]loader.LabelDefinition, error)
	LoadMilestones() ([]loader.MilestoneDefinition, error)
}

// Reporter receives user-facing progress output during a run.
type Reporter interface {
	Info(msg string)
	Success(msg string)
	Warning(msg string)
	Error(msg string)
	Progress(current, total int, msg string)
}
