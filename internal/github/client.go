// Package github provides the remote tracker clients: a live client backed
// by the GitHub API and an in-memory dry-run client for rehearsal.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	gogithub "github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	"github.com/danielolaszy/issuesync/internal/config"
	"github.com/danielolaszy/issuesync/internal/logging"
	"github.com/danielolaszy/issuesync/pkg/models"
)

const pageSize = 100

// Client is the live tracker client, bound to a single repository.
type Client struct {
	client *gogithub.Client
	owner  string
	repo   string
}

// NewClient builds an authenticated client for owner/repo using configuration
// from environment variables. It fails fast when no token is configured and
// verifies the token with a test request before any sync work starts.
func NewClient(owner, repo string) (*Client, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	apiURL := "https://api.github.com/"
	if cfg.GitHub.Domain != "github.com" {
		apiURL = fmt.Sprintf("https://%s/api/v3/", cfg.GitHub.Domain)
	}

	logging.Debug("github configuration",
		"domain", cfg.GitHub.Domain,
		"api_url", apiURL,
		"repository", owner+"/"+repo)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHub.Token})
	tc := oauth2.NewClient(context.Background(), ts)

	client := gogithub.NewClient(tc)
	if cfg.GitHub.Domain != "github.com" {
		parsed, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}
		client.BaseURL = parsed
		client.UploadURL = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("error testing github token: %w", wrapAPIError(err))
	}
	logging.Debug("github authentication successful", "username", user.GetLogin())

	return &Client{client: client, owner: owner, repo: repo}, nil
}

// wrapAPIError maps go-github errors onto the client's error taxonomy:
// rate limiting carries the reset time, 404s wrap ErrNotFound, and anything
// else passes through as a remote error.
func wrapAPIError(err error) error {
	var rateErr *gogithub.RateLimitError
	if errors.As(err, &rateErr) {
		return &RateLimitError{ResetAt: rateErr.Rate.Reset.Time}
	}

	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		reset := time.Now()
		if abuseErr.RetryAfter != nil {
			reset = reset.Add(*abuseErr.RetryAfter)
		}
		return &RateLimitError{ResetAt: reset}
	}

	var respErr *gogithub.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == 404 {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	return err
}

func convertIssue(issue *gogithub.Issue) models.GitHubIssue {
	labels := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labels = append(labels, label.GetName())
	}

	var milestone *int
	if issue.Milestone != nil {
		n := issue.Milestone.GetNumber()
		milestone = &n
	}

	return models.GitHubIssue{
		Number:          issue.GetNumber(),
		Title:           issue.GetTitle(),
		Body:            issue.GetBody(),
		State:           issue.GetState(),
		Labels:          labels,
		MilestoneNumber: milestone,
	}
}

// ListIssues retrieves all issues in the repository matching the state
// filter ("open", "closed", or "all"). Pull requests are filtered out.
func (c *Client) ListIssues(state string) ([]models.GitHubIssue, error) {
	ctx := context.Background()
	opts := &gogithub.IssueListByRepoOptions{
		State:       state,
		ListOptions: gogithub.ListOptions{PerPage: pageSize},
	}

	var result []models.GitHubIssue
	for {
		issues, resp, err := c.client.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issues: %w", wrapAPIError(err))
		}
		for _, issue := range issues {
			if issue.PullRequestLinks != nil {
				continue
			}
			result = append(result, convertIssue(issue))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return result, nil
}

// GetIssue retrieves one issue by number, or nil when it does not exist.
func (c *Client) GetIssue(number int) (*models.GitHubIssue, error) {
	issue, _, err := c.client.Issues.Get(context.Background(), c.owner, c.repo, number)
	if err != nil {
		wrapped := wrapAPIError(err)
		if IsNotFound(wrapped) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get issue #%d: %w", number, wrapped)
	}
	converted := convertIssue(issue)
	return &converted, nil
}

// CreateIssue creates a new issue with the given title, body, labels, and
// optional milestone number.
func (c *Client) CreateIssue(title, body string, labels []string, milestone *int) (*models.GitHubIssue, error) {
	req := &gogithub.IssueRequest{
		Title:     gogithub.String(title),
		Body:      gogithub.String(body),
		Milestone: milestone,
	}
	if len(labels) > 0 {
		req.Labels = &labels
	}

	issue, _, err := c.client.Issues.Create(context.Background(), c.owner, c.repo, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create issue %q: %w", title, wrapAPIError(err))
	}
	converted := convertIssue(issue)
	return &converted, nil
}

// UpdateIssue applies a partial update to an existing issue. Nil fields are
// left unchanged remotely.
func (c *Client) UpdateIssue(number int, update models.IssueUpdate) (*models.GitHubIssue, error) {
	req := &gogithub.IssueRequest{
		Title:     update.Title,
		Body:      update.Body,
		Labels:    update.Labels,
		Milestone: update.Milestone,
		State:     update.State,
	}

	issue, _, err := c.client.Issues.Edit(context.Background(), c.owner, c.repo, number, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update issue #%d: %w", number, wrapAPIError(err))
	}
	converted := convertIssue(issue)
	return &converted, nil
}

// ListMilestones retrieves all milestones matching the state filter.
func (c *Client) ListMilestones(state string) ([]models.GitHubMilestone, error) {
	ctx := context.Background()
	opts := &gogithub.MilestoneListOptions{
		State:       state,
		ListOptions: gogithub.ListOptions{PerPage: pageSize},
	}

	var result []models.GitHubMilestone
	for {
		milestones, resp, err := c.client.Issues.ListMilestones(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list milestones: %w", wrapAPIError(err))
		}
		for _, milestone := range milestones {
			result = append(result, models.GitHubMilestone{
				Number: milestone.GetNumber(),
				Title:  milestone.GetTitle(),
				State:  milestone.GetState(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return result, nil
}

// CreateMilestone creates a new milestone.
func (c *Client) CreateMilestone(title, description string) (*models.GitHubMilestone, error) {
	req := &gogithub.Milestone{
		Title:       gogithub.String(title),
		Description: gogithub.String(description),
	}

	milestone, _, err := c.client.Issues.CreateMilestone(context.Background(), c.owner, c.repo, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create milestone %q: %w", title, wrapAPIError(err))
	}
	return &models.GitHubMilestone{
		Number: milestone.GetNumber(),
		Title:  milestone.GetTitle(),
		State:  milestone.GetState(),
	}, nil
}

// ListLabels retrieves all labels in the repository.
func (c *Client) ListLabels() ([]models.GitHubLabel, error) {
	ctx := context.Background()
	opts := &gogithub.ListOptions{PerPage: pageSize}

	var result []models.GitHubLabel
	for {
		labels, resp, err := c.client.Issues.ListLabels(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list labels: %w", wrapAPIError(err))
		}
		for _, label := range labels {
			result = append(result, models.GitHubLabel{
				Name:        label.GetName(),
				Color:       label.GetColor(),
				Description: label.GetDescription(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return result, nil
}

// CreateLabel creates a new label.
func (c *Client) CreateLabel(name, color, description string) (*models.GitHubLabel, error) {
	req := &gogithub.Label{
		Name:        gogithub.String(name),
		Color:       gogithub.String(color),
		Description: gogithub.String(description),
	}

	label, _, err := c.client.Issues.CreateLabel(context.Background(), c.owner, c.repo, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create label %q: %w", name, wrapAPIError(err))
	}
	return &models.GitHubLabel{
		Name:        label.GetName(),
		Color:       label.GetColor(),
		Description: label.GetDescription(),
	}, nil
}

// UpdateLabel applies a partial update to an existing label.
func (c *Client) UpdateLabel(name string, update models.LabelUpdate) (*models.GitHubLabel, error) {
	req := &gogithub.Label{
		Name:        gogithub.String(name),
		Color:       update.Color,
		Description: update.Description,
	}

	label, _, err := c.client.Issues.EditLabel(context.Background(), c.owner, c.repo, name, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update label %q: %w", name, wrapAPIError(err))
	}
	return &models.GitHubLabel{
		Name:        label.GetName(),
		Color:       label.GetColor(),
		Description: label.GetDescription(),
	}, nil
}
