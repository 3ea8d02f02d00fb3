package sync

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/danielolaszy/issuesync/internal/loader"
	"github.com/danielolaszy/issuesync/internal/logging"
	"github.com/danielolaszy/issuesync/internal/markdown"
	"github.com/danielolaszy/issuesync/internal/state"
	"github.com/danielolaszy/issuesync/pkg/models"
)

// issueIDPattern extracts the controlling local-id marker from a remote
// issue body. Bodies rendered by this tool always start with the bolded id.
var issueIDPattern = regexp.MustCompile(`\*\*([A-Z]+-\d+)\*\*`)

// remoteRef is the known remote counterpart of a local issue.
type remoteRef struct {
	number int
	body   string
}

// runContext is the mutable state accumulated during a single Sync call:
// the remote milestone and label caches and the local-id to remote-issue
// map. It is scoped to one invocation, never shared.
type runContext struct {
	milestones map[string]int
	labels     map[string]struct{}
	existing   map[string]remoteRef
}

func newRunContext() *runContext {
	return &runContext{
		milestones: make(map[string]int),
		labels:     make(map[string]struct{}),
		existing:   make(map[string]remoteRef),
	}
}

// Syncer reconciles local issue definitions against a remote tracker.
type Syncer struct {
	tracker Tracker
	source  Source
	state   *state.Manager
	out     Reporter
}

// NewSyncer wires a syncer from its collaborators.
func NewSyncer(tracker Tracker, source Source, stateManager *state.Manager, out Reporter) *Syncer {
	return &Syncer{
		tracker: tracker,
		source:  source,
		state:   stateManager,
		out:     out,
	}
}

// Sync runs one full reconciliation pass: snapshot the remote, plan, ensure
// labels and milestones, then execute. Execution is fully sequential and
// aborts on the first failed remote write, leaving the state store as the
// resumption checkpoint. The returned summary counts records per status.
func (s *Syncer) Sync(force bool) (map[models.SyncStatus]int, error) {
	run := newRunContext()

	if err := s.loadRemoteSnapshot(run); err != nil {
		return nil, err
	}

	issues, err := s.source.LoadAllIssues()
	if err != nil {
		return nil, err
	}

	ordered := loader.TopologicalOrder(issues)
	index := loader.NewIndex(issues)

	plan := s.buildPlan(run, ordered, force)
	s.out.Info(fmt.Sprintf("Plan: %d create, %d update, %d skip",
		len(plan.Creates), len(plan.Updates), len(plan.Skips)))

	if plan.ActionsNeeded() == 0 {
		s.out.Success("Nothing to sync")
		return s.state.Summary(), nil
	}

	if err := s.ensureLabels(run); err != nil {
		return nil, err
	}
	if err := s.ensureMilestones(run); err != nil {
		return nil, err
	}

	if err := s.executePlan(run, plan, index); err != nil {
		return s.state.Summary(), err
	}

	if err := s.state.MarkRunCompleted(); err != nil {
		return s.state.Summary(), err
	}
	return s.state.Summary(), nil
}

// loadRemoteSnapshot fetches the remote milestones, labels, and issues once
// per run. Remote issues whose bodies carry the local-id marker become the
// existing-issue map; bodies without a marker are orphans and stay untouched.
func (s *Syncer) loadRemoteSnapshot(run *runContext) error {
	s.out.Info("Loading remote state...")

	milestones, err := s.tracker.ListMilestones("all")
	if err != nil {
		return fmt.Errorf("failed to list milestones: %w", err)
	}
	for _, milestone := range milestones {
		run.milestones[milestone.Title] = milestone.Number
	}

	labels, err := s.tracker.ListLabels()
	if err != nil {
		return fmt.Errorf("failed to list labels: %w", err)
	}
	for _, label := range labels {
		run.labels[label.Name] = struct{}{}
	}

	remoteIssues, err := s.tracker.ListIssues("all")
	if err != nil {
		return fmt.Errorf("failed to list issues: %w", err)
	}
	for _, remote := range remoteIssues {
		match := issueIDPattern.FindStringSubmatch(remote.Body)
		if match == nil {
			continue
		}
		run.existing[match[1]] = remoteRef{number: remote.Number, body: remote.Body}
	}

	logging.Debug("loaded remote snapshot",
		"milestones", len(run.milestones),
		"labels", len(run.labels),
		"linked_issues", len(run.existing))
	s.out.Success(fmt.Sprintf("Found %d existing issues", len(run.existing)))
	return nil
}

// buildPlan decides create, update, or skip for each issue in order.
func (s *Syncer) buildPlan(run *runContext, ordered []*models.Issue, force bool) *Plan {
	plan := &Plan{}

	for _, issue := range ordered {
		existing, ok := run.existing[issue.ID]
		switch {
		case !ok:
			plan.Creates = append(plan.Creates, issue)
		case force || s.contentChanged(issue, existing.body):
			plan.Updates = append(plan.Updates, PlannedAction{Issue: issue, Number: existing.number})
		default:
			plan.Skips = append(plan.Skips, PlannedAction{Issue: issue, Number: existing.number})
		}
	}
	return plan
}

// contentChanged is the staleness double-check. A remote body already
// carrying the issue's current hash is proof the remote is current, no
// matter what the state store says; this keeps the system self-healing
// after a lost or reset state file. Only when the remote hash disagrees
// does the state store's record decide.
func (s *Syncer) contentChanged(issue *models.Issue, remoteBody string) bool {
	if strings.Contains(remoteBody, fmt.Sprintf("Content Hash: `%s`", issue.ContentHash())) {
		return false
	}
	return s.state.NeedsSync(issue)
}

// ensureLabels creates every locally-defined label that is missing remotely.
func (s *Syncer) ensureLabels(run *runContext) error {
	defined, err := s.source.LoadLabels()
	if err != nil {
		return err
	}

	for _, def := range defined {
		if _, ok := run.labels[def.Name]; ok {
			continue
		}
		if _, err := s.tracker.CreateLabel(def.Name, def.Color, def.Description); err != nil {
			return fmt.Errorf("failed to create label %q: %w", def.Name, err)
		}
		run.labels[def.Name] = struct{}{}
		s.out.Success("Created label: " + def.Name)
	}
	return nil
}

// ensureMilestones creates every locally-defined milestone missing remotely.
func (s *Syncer) ensureMilestones(run *runContext) error {
	defined, err := s.source.LoadMilestones()
	if err != nil {
		return err
	}

	for _, def := range defined {
		if _, ok := run.milestones[def.Title]; ok {
			continue
		}
		milestone, err := s.tracker.CreateMilestone(def.Title, def.Description)
		if err != nil {
			return fmt.Errorf("failed to create milestone %q: %w", def.Title, err)
		}
		run.milestones[def.Title] = milestone.Number
		s.out.Success("Created milestone: " + def.Title)
	}
	return nil
}

// executePlan runs creates, then updates, then skips. Skip entries touch
// only the state store and are not counted toward the progress total.
func (s *Syncer) executePlan(run *runContext, plan *Plan, index *loader.Index) error {
	total := plan.ActionsNeeded()
	current := 0

	for _, issue := range plan.Creates {
		current++
		s.out.Progress(current, total, "Creating "+issue.ID)
		if err := s.createIssue(run, issue, index); err != nil {
			return err
		}
	}

	for _, action := range plan.Updates {
		current++
		s.out.Progress(current, total, "Updating "+action.Issue.ID)
		if err := s.updateIssue(run, action.Issue, action.Number, index); err != nil {
			return err
		}
	}

	for _, action := range plan.Skips {
		number := action.Number
		if err := s.state.MarkStarted(action.Issue.ID, models.ActionSkip); err != nil {
			return err
		}
		if err := s.state.MarkSkipped(action.Issue.ID, &number); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) createIssue(run *runContext, issue *models.Issue, index *loader.Index) error {
	if err := s.state.MarkStarted(issue.ID, models.ActionCreate); err != nil {
		return err
	}

	created, err := s.tracker.CreateIssue(
		issueTitle(issue),
		s.renderBody(run, issue, index),
		s.resolveLabels(run, issue),
		milestoneNumber(run, issue),
	)
	if err != nil {
		s.state.MarkFailed(issue.ID, err.Error())
		s.out.Error(fmt.Sprintf("Failed %s: %v", issue.ID, err))
		return err
	}

	run.existing[issue.ID] = remoteRef{number: created.Number, body: created.Body}
	if err := s.state.MarkCompleted(issue.ID, created.Number, issue.ContentHash()); err != nil {
		return err
	}
	s.out.Success(fmt.Sprintf("Created #%d: %s", created.Number, issue.ID))
	return nil
}

func (s *Syncer) updateIssue(run *runContext, issue *models.Issue, number int, index *loader.Index) error {
	if err := s.state.MarkStarted(issue.ID, models.ActionUpdate); err != nil {
		return err
	}

	title := issueTitle(issue)
	body := s.renderBody(run, issue, index)
	labels := s.resolveLabels(run, issue)

	updated, err := s.tracker.UpdateIssue(number, models.IssueUpdate{
		Title:     &title,
		Body:      &body,
		Labels:    &labels,
		Milestone: milestoneNumber(run, issue),
	})
	if err != nil {
		s.state.MarkFailed(issue.ID, err.Error())
		s.out.Error(fmt.Sprintf("Failed %s: %v", issue.ID, err))
		return err
	}

	run.existing[issue.ID] = remoteRef{number: updated.Number, body: updated.Body}
	if err := s.state.MarkCompleted(issue.ID, updated.Number, issue.ContentHash()); err != nil {
		return err
	}
	s.out.Success(fmt.Sprintf("Updated #%d: %s", updated.Number, issue.ID))
	return nil
}

func issueTitle(issue *models.Issue) string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(issue.Type), issue.Title)
}

// resolveLabels filters an issue's labels down to those confirmed remotely.
func (s *Syncer) resolveLabels(run *runContext, issue *models.Issue) []string {
	resolved := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		if _, ok := run.labels[label]; ok {
			resolved = append(resolved, label)
		}
	}
	return resolved
}

func milestoneNumber(run *runContext, issue *models.Issue) *int {
	if number, ok := run.milestones[issue.Milestone]; ok {
		n := number
		return &n
	}
	return nil
}

// renderBody wraps the rendered markdown with cross-reference lines:
// Blocks and Depends On prepended, Child Issues appended. An epic with no
// explicit child list falls back to the children the index derived from
// epic back-pointers.
func (s *Syncer) renderBody(run *runContext, issue *models.Issue, index *loader.Index) string {
	body := markdown.Render(issue)

	if len(issue.DependsOn) > 0 {
		body = s.renderRefs(run, "Depends On", issue.DependsOn) + "\n\n" + body
	}
	if len(issue.Blocks) > 0 {
		body = s.renderRefs(run, "Blocks", issue.Blocks) + "\n\n" + body
	}

	children := issue.Children
	if len(children) == 0 {
		for _, child := range index.ChildrenOf(issue.ID) {
			children = append(children, child.ID)
		}
	}
	if len(children) > 0 {
		body = body + "\n\n" + s.renderRefs(run, "Child Issues", children)
	}

	return body
}

// renderRefs resolves issue ids to #number references when the remote
// counterpart is known, else falls back to the literal id in backticks.
func (s *Syncer) renderRefs(run *runContext, label string, issueIDs []string) string {
	refs := make([]string, 0, len(issueIDs))
	for _, issueID := range issueIDs {
		if existing, ok := run.existing[issueID]; ok {
			refs = append(refs, fmt.Sprintf("#%d", existing.number))
		} else {
			refs = append(refs, fmt.Sprintf("`%s`", issueID))
		}
	}
	return fmt.Sprintf("**%s:** %s", label, strings.Join(refs, ", "))
}
