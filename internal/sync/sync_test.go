package sync

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/issuesync/internal/github"
	"github.com/danielolaszy/issuesync/internal/loader"
	"github.com/danielolaszy/issuesync/internal/state"
	"github.com/danielolaszy/issuesync/pkg/models"
)

// stubSource implements Source from fixed in-memory definitions.
type stubSource struct {
	issues     []*models.Issue
	labels     []loader.LabelDefinition
	milestones []loader.MilestoneDefinition
}

func (s *stubSource) LoadAllIssues() ([]*models.Issue, error) {
	return s.issues, nil
}

func (s *stubSource) LoadLabels() ([]loader.LabelDefinition, error) {
	return s.labels, nil
}

func (s *stubSource) LoadMilestones() ([]loader.MilestoneDefinition, error) {
	return s.milestones, nil
}

// nopReporter discards all output.
type nopReporter struct{}

func (nopReporter) Info(string)              {}
func (nopReporter) Success(string)           {}
func (nopReporter) Warning(string)           {}
func (nopReporter) Error(string)             {}
func (nopReporter) Progress(int, int, string) {}

// countingTracker counts remote writes on top of any Tracker.
type countingTracker struct {
	Tracker
	creates int
	updates int
}

func (c *countingTracker) CreateIssue(title, body string, labels []string, milestone *int) (*models.GitHubIssue, error) {
	c.creates++
	return c.Tracker.CreateIssue(title, body, labels, milestone)
}

func (c *countingTracker) UpdateIssue(number int, update models.IssueUpdate) (*models.GitHubIssue, error) {
	c.updates++
	return c.Tracker.UpdateIssue(number, update)
}

func newStateManager(t *testing.T) *state.Manager {
	t.Helper()
	return state.NewManager(filepath.Join(t.TempDir(), ".sync-state.json"))
}

func epicAndStory() []*models.Issue {
	return []*models.Issue{
		{
			ID:          "EPIC-1",
			Title:       "Sync engine",
			Type:        "epic",
			Priority:    "high",
			Description: "The epic.",
		},
		{
			ID:          "STORY-1",
			Title:       "Plan builder",
			Type:        "story",
			Priority:    "medium",
			Description: "The story.",
			Epic:        "EPIC-1",
			DependsOn:   []string{"EPIC-1"},
		},
	}
}

func TestSyncCreatesInTopologicalOrder(t *testing.T) {
	remote := github.NewDryRunClient()
	tracker := &countingTracker{Tracker: remote}
	// Source order is deliberately story-first; the planner must reorder.
	issues := epicAndStory()
	source := &stubSource{issues: []*models.Issue{issues[1], issues[0]}}

	syncer := NewSyncer(tracker, source, newStateManager(t), nopReporter{})
	summary, err := syncer.Sync(true)
	require.NoError(t, err)

	assert.Equal(t, 2, tracker.creates)
	assert.Equal(t, 0, tracker.updates)
	assert.Equal(t, 2, summary[models.StatusCompleted])

	epic, err := remote.GetIssue(1001)
	require.NoError(t, err)
	require.NotNil(t, epic)
	assert.Equal(t, "[EPIC] Sync engine", epic.Title)

	story, err := remote.GetIssue(1002)
	require.NoError(t, err)
	require.NotNil(t, story)
	assert.Equal(t, "[STORY] Plan builder", story.Title)

	// The story was created after the epic, so its dependency line resolves
	// to the epic's fabricated number instead of the literal id.
	assert.Contains(t, story.Body, "**Depends On:** #1001")
	assert.NotContains(t, story.Body, "**Depends On:** `EPIC-1`")
}

func TestSyncEpicChildFallbackRef(t *testing.T) {
	remote := github.NewDryRunClient()
	source := &stubSource{issues: epicAndStory()}

	syncer := NewSyncer(remote, source, newStateManager(t), nopReporter{})
	_, err := syncer.Sync(true)
	require.NoError(t, err)

	// The epic renders before the story exists remotely, so the derived
	// child reference degrades to the literal id.
	epic, err := remote.GetIssue(1001)
	require.NoError(t, err)
	require.NotNil(t, epic)
	assert.Contains(t, epic.Body, "**Child Issues:** `STORY-1`")
}

func TestSyncIdempotent(t *testing.T) {
	remote := github.NewDryRunClient()
	tracker := &countingTracker{Tracker: remote}
	source := &stubSource{issues: epicAndStory()}
	stateManager := newStateManager(t)

	syncer := NewSyncer(tracker, source, stateManager, nopReporter{})
	_, err := syncer.Sync(false)
	require.NoError(t, err)
	require.Equal(t, 2, tracker.creates)

	// Second run with no local changes: everything resolves to skip and no
	// remote write happens.
	_, err = syncer.Sync(false)
	require.NoError(t, err)
	assert.Equal(t, 2, tracker.creates)
	assert.Equal(t, 0, tracker.updates)
}

func TestSyncSelfHealingAfterStateLoss(t *testing.T) {
	issue := &models.Issue{
		ID:          "CORE-1",
		Title:       "Widget",
		Type:        "story",
		Description: "The widget.",
	}

	remote := github.NewDryRunClient()
	remote.SeedIssue(models.GitHubIssue{
		Number: 1050,
		Title:  "[STORY] Widget",
		Body:   fmt.Sprintf("**CORE-1**\n\nThe widget.\n\n---\n*Content Hash: `%s`*", issue.ContentHash()),
		State:  "open",
	})

	tracker := &countingTracker{Tracker: remote}
	source := &stubSource{issues: []*models.Issue{issue}}

	// Fresh, empty state store: the remote body's hash alone must prevent
	// a redundant update.
	syncer := NewSyncer(tracker, source, newStateManager(t), nopReporter{})
	_, err := syncer.Sync(false)
	require.NoError(t, err)

	assert.Equal(t, 0, tracker.creates)
	assert.Equal(t, 0, tracker.updates)
}

func TestSyncForceUpdates(t *testing.T) {
	remote := github.NewDryRunClient()
	tracker := &countingTracker{Tracker: remote}
	source := &stubSource{issues: epicAndStory()}
	stateManager := newStateManager(t)

	syncer := NewSyncer(tracker, source, stateManager, nopReporter{})
	_, err := syncer.Sync(false)
	require.NoError(t, err)
	require.Equal(t, 2, tracker.creates)

	_, err = syncer.Sync(true)
	require.NoError(t, err)
	assert.Equal(t, 2, tracker.creates)
	assert.Equal(t, 2, tracker.updates)
}

func TestSyncAbortsOnFailureAndResumes(t *testing.T) {
	issues := []*models.Issue{
		{ID: "CORE-1", Title: "One", Type: "story", Description: "one"},
		{ID: "CORE-2", Title: "Two", Type: "story", Description: "two"},
		{ID: "CORE-3", Title: "Three", Type: "story", Description: "three"},
	}

	remote := github.NewDryRunClient()
	source := &stubSource{issues: issues}
	stateManager := newStateManager(t)

	// Fail the second create: the first issue lands, the failure is
	// recorded, and the third issue is never attempted.
	armed := &secondCreateFails{Tracker: remote}
	syncer := NewSyncer(armed, source, stateManager, nopReporter{})

	_, err := syncer.Sync(false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote exploded")

	records := stateManager.State().Records
	require.NotNil(t, records["CORE-1"])
	assert.Equal(t, models.StatusCompleted, records["CORE-1"].Status)
	require.NotNil(t, records["CORE-2"])
	assert.Equal(t, models.StatusFailed, records["CORE-2"].Status)
	assert.Equal(t, "remote exploded", records["CORE-2"].Error)
	assert.Nil(t, records["CORE-3"], "third issue never attempted")

	// The next run re-plans from scratch: the completed issue is skipped by
	// hash, only the failed and unattempted ones are created.
	resumed := &countingTracker{Tracker: remote}
	syncer = NewSyncer(resumed, source, stateManager, nopReporter{})
	_, err = syncer.Sync(false)
	require.NoError(t, err)

	assert.Equal(t, 2, resumed.creates)
	assert.Equal(t, 0, resumed.updates)
	assert.Equal(t, models.StatusCompleted, stateManager.State().Records["CORE-2"].Status)
	assert.Equal(t, models.StatusCompleted, stateManager.State().Records["CORE-3"].Status)
	assert.Equal(t, models.StatusSkipped, stateManager.State().Records["CORE-1"].Status)
	require.NotNil(t, stateManager.State().CompletedAt)
}

// secondCreateFails passes the first CreateIssue through and fails the second.
type secondCreateFails struct {
	Tracker
	calls int
}

func (s *secondCreateFails) CreateIssue(title, body string, labels []string, milestone *int) (*models.GitHubIssue, error) {
	s.calls++
	if s.calls == 2 {
		return nil, errors.New("remote exploded")
	}
	return s.Tracker.CreateIssue(title, body, labels, milestone)
}

func TestSyncEnsuresLabelsAndMilestones(t *testing.T) {
	issue := &models.Issue{
		ID:          "CORE-1",
		Title:       "Widget",
		Type:        "story",
		Description: "The widget.",
		Labels:      []string{"backend", "undefined-label"},
		Milestone:   "v1",
	}

	remote := github.NewDryRunClient()
	source := &stubSource{
		issues:     []*models.Issue{issue},
		labels:     []loader.LabelDefinition{{Name: "backend", Color: "0e8a16"}},
		milestones: []loader.MilestoneDefinition{{Title: "v1", Description: "first"}},
	}

	syncer := NewSyncer(remote, source, newStateManager(t), nopReporter{})
	_, err := syncer.Sync(false)
	require.NoError(t, err)

	labels, err := remote.ListLabels()
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "backend", labels[0].Name)

	created, err := remote.GetIssue(1001)
	require.NoError(t, err)
	require.NotNil(t, created)
	// Only remotely-confirmed labels are attached.
	assert.Equal(t, []string{"backend"}, created.Labels)
	require.NotNil(t, created.MilestoneNumber)
	assert.Equal(t, 101, *created.MilestoneNumber)
}

func TestSyncAllSkipPerformsNoRemoteWrites(t *testing.T) {
	issue := &models.Issue{ID: "CORE-1", Title: "Widget", Type: "story", Description: "The widget."}

	remote := github.NewDryRunClient()
	source := &stubSource{
		issues: []*models.Issue{issue},
		labels: []loader.LabelDefinition{{Name: "never-created", Color: "ffffff"}},
	}
	stateManager := newStateManager(t)

	syncer := NewSyncer(remote, source, stateManager, nopReporter{})
	_, err := syncer.Sync(false)
	require.NoError(t, err)

	// All-skip second run: even the locally defined label that is missing
	// remotely must not be created, because nothing needs writing.
	labelsBefore, err := remote.ListLabels()
	require.NoError(t, err)

	_, err = syncer.Sync(false)
	require.NoError(t, err)

	labelsAfter, err := remote.ListLabels()
	require.NoError(t, err)
	assert.Equal(t, len(labelsBefore), len(labelsAfter))
}

func TestSyncOrphanRemoteIssueUntouched(t *testing.T) {
	remote := github.NewDryRunClient()
	remote.SeedIssue(models.GitHubIssue{
		Number: 1010,
		Title:  "Handwritten issue",
		Body:   "No marker here at all.",
		State:  "open",
	})

	issue := &models.Issue{ID: "CORE-1", Title: "Widget", Type: "story", Description: "The widget."}
	tracker := &countingTracker{Tracker: remote}
	source := &stubSource{issues: []*models.Issue{issue}}

	syncer := NewSyncer(tracker, source, newStateManager(t), nopReporter{})
	_, err := syncer.Sync(false)
	require.NoError(t, err)

	// The orphan is not linked to any local issue; the local issue is
	// created fresh and the orphan's body is untouched.
	assert.Equal(t, 1, tracker.creates)
	orphan, err := remote.GetIssue(1010)
	require.NoError(t, err)
	require.NotNil(t, orphan)
	assert.Equal(t, "No marker here at all.", orphan.Body)
}

func TestMarkerPattern(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "marker at start", body: "**CORE-12**\n\nbody", want: "CORE-12"},
		{name: "marker with header", body: "**EPIC-1** | Epic: none\n\nbody", want: "EPIC-1"},
		{name: "no marker", body: "plain body", want: ""},
		{name: "lowercase not a marker", body: "**core-1**", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := issueIDPattern.FindStringSubmatch(tt.body)
			if tt.want == "" {
				assert.Nil(t, match)
			} else {
				require.NotNil(t, match)
				assert.Equal(t, tt.want, match[1])
			}
		})
	}
}

func TestIssueTitle(t *testing.T) {
	issue := &models.Issue{ID: "CORE-1", Title: "Widget", Type: "story"}
	assert.Equal(t, "[STORY] Widget", issueTitle(issue))
	assert.True(t, strings.HasPrefix(issueTitle(issue), "["))
}
