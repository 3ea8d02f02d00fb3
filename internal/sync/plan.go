package sync

import (
	"github.com/danielolaszy/issuesync/pkg/models"
)

// PlannedAction pairs an issue with the remote number it already maps to.
type PlannedAction struct {
	Issue  *models.Issue
	Number int
}

// Plan is the computed intention for one run, in topological order within
// each list. It is never persisted.
type Plan struct {
	Creates []*models.Issue
	Updates []PlannedAction
	Skips   []PlannedAction
}

// Total returns the number of issues covered by the plan.
func (p *Plan) Total() int {
	return len(p.Creates) + len(p.Updates) + len(p.Skips)
}

// ActionsNeeded returns the number of remote writes the plan requires.
func (p *Plan) ActionsNeeded() int {
	return len(p.Creates) + len(p.Updates)
}
