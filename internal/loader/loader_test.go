package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/issuesync/pkg/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "_schema.json", `{}`)
	writeFile(t, dir, "_labels.json", `{"labels": [{"name": "epic", "color": "5319e7"}, {"name": "story", "color": "0e8a16", "description": "User story"}]}`)
	writeFile(t, dir, "_milestones.json", `{"milestones": [{"title": "v1", "description": "First release"}]}`)
	return dir
}

func TestNewValidatesControlFiles(t *testing.T) {
	tests := []struct {
		name    string
		missing string
	}{
		{name: "missing schema", missing: "_schema.json"},
		{name: "missing labels", missing: "_labels.json"},
		{name: "missing milestones", missing: "_milestones.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newTestDir(t)
			require.NoError(t, os.Remove(filepath.Join(dir, tt.missing)))

			_, err := New(dir)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestLoadLabelsAndMilestones(t *testing.T) {
	ldr, err := New(newTestDir(t))
	require.NoError(t, err)

	labels, err := ldr.LoadLabels()
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "epic", labels[0].Name)
	assert.Equal(t, "5319e7", labels[0].Color)
	assert.Equal(t, "User story", labels[1].Description)

	milestones, err := ldr.LoadMilestones()
	require.NoError(t, err)
	require.Len(t, milestones, 1)
	assert.Equal(t, "v1", milestones[0].Title)
}

func TestLoadAllIssuesJSONAndYAML(t *testing.T) {
	dir := newTestDir(t)
	writeFile(t, dir, "epics/epic-1.json", `{"id": "EPIC-1", "title": "Epic one", "type": "epic", "status": "planned", "priority": "high", "description": "The epic."}`)
	writeFile(t, dir, "stories/story-1.yaml", "id: STORY-1\ntitle: Story one\ntype: story\nstatus: planned\npriority: medium\ndescription: The story.\nepic: EPIC-1\n")

	ldr, err := New(dir)
	require.NoError(t, err)

	issues, err := ldr.LoadAllIssues()
	require.NoError(t, err)
	require.Len(t, issues, 2)

	assert.Equal(t, "EPIC-1", issues[0].ID)
	assert.Equal(t, filepath.Join("epics", "epic-1.json"), issues[0].SourceFile)
	assert.Equal(t, "STORY-1", issues[1].ID)
	assert.Equal(t, "EPIC-1", issues[1].Epic)
}

func TestLoadAllIssuesDuplicateID(t *testing.T) {
	dir := newTestDir(t)
	writeFile(t, dir, "stories/a.json", `{"id": "STORY-1", "title": "A", "type": "story"}`)
	writeFile(t, dir, "stories/b.json", `{"id": "STORY-1", "title": "B", "type": "story"}`)

	ldr, err := New(dir)
	require.NoError(t, err)

	_, err = ldr.LoadAllIssues()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate issue id")
}

func issueWith(id string, deps []string, epic string) *models.Issue {
	return &models.Issue{ID: id, Title: id, Type: "story", DependsOn: deps, Epic: epic}
}

func TestTopologicalOrder(t *testing.T) {
	a := issueWith("A-1", nil, "")
	b := issueWith("A-2", []string{"A-1"}, "")
	c := issueWith("A-3", []string{"A-2"}, "")

	ordered := TopologicalOrder([]*models.Issue{c, b, a})
	require.Len(t, ordered, 3)
	assert.Equal(t, "A-1", ordered[0].ID)
	assert.Equal(t, "A-2", ordered[1].ID)
	assert.Equal(t, "A-3", ordered[2].ID)
}

func TestTopologicalOrderEpicBeforeChild(t *testing.T) {
	epic := issueWith("EPIC-1", nil, "")
	story := issueWith("STORY-1", nil, "EPIC-1")

	ordered := TopologicalOrder([]*models.Issue{story, epic})
	require.Len(t, ordered, 2)
	assert.Equal(t, "EPIC-1", ordered[0].ID)
	assert.Equal(t, "STORY-1", ordered[1].ID)
}

func TestTopologicalOrderToleratesCycle(t *testing.T) {
	a := issueWith("A-1", []string{"A-2"}, "")
	b := issueWith("A-2", []string{"A-1"}, "")

	ordered := TopologicalOrder([]*models.Issue{a, b})

	require.Len(t, ordered, 2)
	seen := map[string]int{}
	for _, issue := range ordered {
		seen[issue.ID]++
	}
	assert.Equal(t, 1, seen["A-1"])
	assert.Equal(t, 1, seen["A-2"])
}

func TestTopologicalOrderIgnoresUnknownRefs(t *testing.T) {
	a := issueWith("A-1", []string{"GHOST-9"}, "GHOST-0")

	ordered := TopologicalOrder([]*models.Issue{a})
	require.Len(t, ordered, 1)
	assert.Equal(t, "A-1", ordered[0].ID)
}

func TestIndexLookups(t *testing.T) {
	epic := issueWith("EPIC-1", nil, "")
	epic.Title = "The Epic"
	s1 := issueWith("STORY-1", nil, "EPIC-1")
	s2 := issueWith("STORY-2", nil, "EPIC-1")

	idx := NewIndex([]*models.Issue{epic, s1, s2})

	assert.Equal(t, epic, idx.Get("EPIC-1"))
	assert.Nil(t, idx.Get("GHOST-1"))

	assert.Equal(t, epic, idx.FindByTitle("  the epic "))
	assert.Nil(t, idx.FindByTitle("no such title"))

	children := idx.ChildrenOf("EPIC-1")
	require.Len(t, children, 2)
	assert.Equal(t, "STORY-1", children[0].ID)
	assert.Equal(t, "STORY-2", children[1].ID)

	assert.Empty(t, idx.ChildrenOf("STORY-1"))
	assert.Equal(t, 3, idx.Len())
}

func TestIndexTitleCollisionLastWins(t *testing.T) {
	first := issueWith("A-1", nil, "")
	first.Title = "Same Title"
	second := issueWith("A-2", nil, "")
	second.Title = "same title"

	idx := NewIndex([]*models.Issue{first, second})
	assert.Equal(t, second, idx.FindByTitle("Same Title"))
}
