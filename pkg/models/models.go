// Package models defines data structures shared across the application.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// SyncAction describes what a sync run intends to do with an issue.
type SyncAction string

const (
	ActionCreate SyncAction = "create"
	ActionUpdate SyncAction = "update"
	ActionSkip   SyncAction = "skip"
	ActionClose  SyncAction = "close"
)

// SyncStatus describes the state of one issue's sync attempt.
type SyncStatus string

const (
	StatusPending    SyncStatus = "pending"
	StatusInProgress SyncStatus = "in_progress"
	StatusCompleted  SyncStatus = "completed"
	StatusFailed     SyncStatus = "failed"
	StatusSkipped    SyncStatus = "skipped"
)

// AcceptanceCriterion is one Given/When/Then clause of an issue.
type AcceptanceCriterion struct {
	ID    string `json:"id" yaml:"id"`
	Given string `json:"given" yaml:"given"`
	When  string `json:"when" yaml:"when"`
	Then  string `json:"then" yaml:"then"`
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Issue is one locally authored issue definition. Instances are built once
// by the loader and treated as immutable for the rest of the run.
type Issue struct {
	ID                 string                `json:"id" yaml:"id"`
	Title              string                `json:"title" yaml:"title"`
	Type               string                `json:"type" yaml:"type"`
	Status             string                `json:"status" yaml:"status"`
	Priority           string                `json:"priority" yaml:"priority"`
	Labels             []string              `json:"labels" yaml:"labels"`
	Milestone          string                `json:"milestone" yaml:"milestone"`
	Description        string                `json:"description" yaml:"description"`
	AcceptanceCriteria []AcceptanceCriterion `json:"acceptance_criteria" yaml:"acceptance_criteria"`
	Epic               string                `json:"epic" yaml:"epic"`
	DependsOn          []string              `json:"depends_on" yaml:"depends_on"`
	Blocks             []string              `json:"blocks" yaml:"blocks"`
	Children           []string              `json:"children" yaml:"children"`
	UserStory          string                `json:"user_story" yaml:"user_story"`
	TechnicalContext   map[string]any        `json:"technical_context" yaml:"technical_context"`
	StateMachine       map[string]any        `json:"state_machine" yaml:"state_machine"`
	OutOfScope         []string              `json:"out_of_scope" yaml:"out_of_scope"`
	OpenQuestions      []string              `json:"open_questions" yaml:"open_questions"`
	Estimate           map[string]any        `json:"estimate" yaml:"estimate"`
	Goals              []string              `json:"goals" yaml:"goals"`
	DesignPrinciples   []string              `json:"design_principles" yaml:"design_principles"`
	VisualMockups      map[string]any        `json:"visual_mockups" yaml:"visual_mockups"`
	SourceFile         string                `json:"-" yaml:"-"`
}

// ContentHash returns a short deterministic fingerprint over the fields that
// matter for the remote issue's content. Structural and volatile fields
// (status, children, estimate, mockups) are deliberately excluded so that
// editing them does not trigger a remote update.
func (i *Issue) ContentHash() string {
	normalized, err := json.Marshal(i.hashable())
	if err != nil {
		// Only map/slice/string values reach the encoder, so this cannot
		// happen for loaded issues.
		panic(err)
	}
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:])[:16]
}

// hashable builds the canonical form of the issue: a map so that the JSON
// encoder emits keys in sorted order at every level, with order-insensitive
// list fields pre-sorted.
func (i *Issue) hashable() map[string]any {
	criteria := make([]map[string]any, 0, len(i.AcceptanceCriteria))
	for _, ac := range i.AcceptanceCriteria {
		m := map[string]any{
			"id":    ac.ID,
			"given": ac.Given,
			"when":  ac.When,
			"then":  ac.Then,
		}
		if ac.Notes != "" {
			m["notes"] = ac.Notes
		}
		criteria = append(criteria, m)
	}

	return map[string]any{
		"id":                  i.ID,
		"title":               i.Title,
		"type":                i.Type,
		"priority":            i.Priority,
		"labels":              sortedCopy(i.Labels),
		"description":         i.Description,
		"acceptance_criteria": criteria,
		"epic":                i.Epic,
		"depends_on":          sortedCopy(i.DependsOn),
		"user_story":          i.UserStory,
		"technical_context":   i.TechnicalContext,
		"state_machine":       i.StateMachine,
		"out_of_scope":        i.OutOfScope,
		"goals":               i.Goals,
	}
}

func sortedCopy(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

// SyncRecord is the persisted outcome of one issue's sync attempt.
type SyncRecord struct {
	IssueID      string     `json:"issue_id"`
	Action       SyncAction `json:"action"`
	Status       SyncStatus `json:"status"`
	GitHubNumber *int       `json:"github_number"`
	ContentHash  string     `json:"content_hash,omitempty"`
	Error        string     `json:"error,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// SyncState is the full persisted state of a sync run.
type SyncState struct {
	RunID       string                 `json:"run_id"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at"`
	Records     map[string]*SyncRecord `json:"records"`
}

// IsCompleted reports whether the given issue has a completed record.
func (s *SyncState) IsCompleted(issueID string) bool {
	record, ok := s.Records[issueID]
	return ok && record.Status == StatusCompleted
}

// NeedsSync reports whether the issue must be pushed again: no record,
// an unfinished record, or a record synced at a different content hash.
func (s *SyncState) NeedsSync(issue *Issue) bool {
	record, ok := s.Records[issue.ID]
	if !ok {
		return true
	}
	if record.Status != StatusCompleted {
		return true
	}
	return record.ContentHash != issue.ContentHash()
}

// GitHubIssue is a read-only snapshot of a remote issue.
type GitHubIssue struct {
	Number          int
	Title           string
	Body            string
	State           string
	Labels          []string
	MilestoneNumber *int
}

// GitHubMilestone is a read-only snapshot of a remote milestone.
type GitHubMilestone struct {
	Number int
	Title  string
	State  string
}

// GitHubLabel is a read-only snapshot of a remote label.
type GitHubLabel struct {
	Name        string
	Color       string
	Description string
}

// IssueUpdate carries the fields of a partial issue update. Nil fields are
// left unchanged on the remote side.
type IssueUpdate struct {
	Title     *string
	Body      *string
	Labels    *[]string
	Milestone *int
	State     *string
}

// LabelUpdate carries the fields of a partial label update.
type LabelUpdate struct {
	Color       *string
	Description *string
}
