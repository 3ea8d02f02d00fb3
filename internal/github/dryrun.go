package github

import (
	"fmt"
	"sort"

	"github.com/danielolaszy/issuesync/pkg/models"
)

// DryRunClient satisfies the tracker contract entirely in memory. It never
// touches the network and fabricates sequential numeric ids, so a rehearsal
// run exercises the exact planning and execution paths of a live run.
type DryRunClient struct {
	issueCounter     int
	milestoneCounter int
	issues           map[int]models.GitHubIssue
	milestones       map[string]models.GitHubMilestone
	labels           map[string]models.GitHubLabel
	labelOrder       []string
	milestoneOrder   []string
}

// NewDryRunClient returns an empty in-memory tracker. Fabricated issue
// numbers start at 1001 and milestone numbers at 101.
func NewDryRunClient() *DryRunClient {
	return &DryRunClient{
		issueCounter:     1000,
		milestoneCounter: 100,
		issues:           make(map[int]models.GitHubIssue),
		milestones:       make(map[string]models.GitHubMilestone),
		labels:           make(map[string]models.GitHubLabel),
	}
}

// SeedIssue installs a pre-existing remote issue, for rehearsals against a
// non-empty repository.
func (c *DryRunClient) SeedIssue(issue models.GitHubIssue) {
	c.issues[issue.Number] = issue
	if issue.Number > c.issueCounter {
		c.issueCounter = issue.Number
	}
}

// ListIssues returns all in-memory issues in number order.
func (c *DryRunClient) ListIssues(state string) ([]models.GitHubIssue, error) {
	numbers := make([]int, 0, len(c.issues))
	for number := range c.issues {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)

	result := make([]models.GitHubIssue, 0, len(numbers))
	for _, number := range numbers {
		result = append(result, c.issues[number])
	}
	return result, nil
}

// GetIssue returns the issue with the given number, or nil.
func (c *DryRunClient) GetIssue(number int) (*models.GitHubIssue, error) {
	if issue, ok := c.issues[number]; ok {
		return &issue, nil
	}
	return nil, nil
}

// CreateIssue fabricates a new open issue with the next sequential number.
func (c *DryRunClient) CreateIssue(title, body string, labels []string, milestone *int) (*models.GitHubIssue, error) {
	c.issueCounter++
	issue := models.GitHubIssue{
		Number:          c.issueCounter,
		Title:           title,
		Body:            body,
		State:           "open",
		Labels:          append([]string(nil), labels...),
		MilestoneNumber: milestone,
	}
	c.issues[issue.Number] = issue
	return &issue, nil
}

// UpdateIssue applies a partial update, failing with ErrNotFound when the
// number is unknown.
func (c *DryRunClient) UpdateIssue(number int, update models.IssueUpdate) (*models.GitHubIssue, error) {
	existing, ok := c.issues[number]
	if !ok {
		return nil, fmt.Errorf("issue #%d: %w", number, ErrNotFound)
	}

	if update.Title != nil {
		existing.Title = *update.Title
	}
	if update.Body != nil {
		existing.Body = *update.Body
	}
	if update.Labels != nil {
		existing.Labels = append([]string(nil), (*update.Labels)...)
	}
	if update.Milestone != nil {
		existing.MilestoneNumber = update.Milestone
	}
	if update.State != nil {
		existing.State = *update.State
	}

	c.issues[number] = existing
	return &existing, nil
}

// ListMilestones returns all in-memory milestones in creation order.
func (c *DryRunClient) ListMilestones(state string) ([]models.GitHubMilestone, error) {
	result := make([]models.GitHubMilestone, 0, len(c.milestoneOrder))
	for _, title := range c.milestoneOrder {
		result = append(result, c.milestones[title])
	}
	return result, nil
}

// CreateMilestone fabricates a new open milestone.
func (c *DryRunClient) CreateMilestone(title, description string) (*models.GitHubMilestone, error) {
	c.milestoneCounter++
	milestone := models.GitHubMilestone{
		Number: c.milestoneCounter,
		Title:  title,
		State:  "open",
	}
	if _, ok := c.milestones[title]; !ok {
		c.milestoneOrder = append(c.milestoneOrder, title)
	}
	c.milestones[title] = milestone
	return &milestone, nil
}

// ListLabels returns all in-memory labels in creation order.
func (c *DryRunClient) ListLabels() ([]models.GitHubLabel, error) {
	result := make([]models.GitHubLabel, 0, len(c.labelOrder))
	for _, name := range c.labelOrder {
		result = append(result, c.labels[name])
	}
	return result, nil
}

// CreateLabel records a new label.
func (c *DryRunClient) CreateLabel(name, color, description string) (*models.GitHubLabel, error) {
	label := models.GitHubLabel{Name: name, Color: color, Description: description}
	if _, ok := c.labels[name]; !ok {
		c.labelOrder = append(c.labelOrder, name)
	}
	c.labels[name] = label
	return &label, nil
}

// UpdateLabel applies a partial update, failing with ErrNotFound when the
// label is unknown.
func (c *DryRunClient) UpdateLabel(name string, update models.LabelUpdate) (*models.GitHubLabel, error) {
	existing, ok := c.labels[name]
	if !ok {
		return nil, fmt.Errorf("label %q: %w", name, ErrNotFound)
	}

	if update.Color != nil {
		existing.Color = *update.Color
	}
	if update.Description != nil {
		existing.Description = *update.Description
	}

	c.labels[name] = existing
	return &existing, nil
}
