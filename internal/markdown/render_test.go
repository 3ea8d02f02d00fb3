package markdown

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielolaszy/issuesync/pkg/models"
)

func renderedIssue() *models.Issue {
	return &models.Issue{
		ID:          "CORE-1",
		Title:       "Implement the widget",
		Type:        "story",
		Priority:    "high",
		Description: "Build the widget end to end.",
		Epic:        "CORE-0",
		UserStory:   "As a user I want widgets.",
		Goals:       []string{"ship it"},
		AcceptanceCriteria: []models.AcceptanceCriterion{
			{ID: "AC-1", Given: "a fresh install", When: "the widget runs", Then: "it works", Notes: "flaky on windows"},
		},
		OutOfScope:    []string{"gadgets"},
		OpenQuestions: []string{"name of the widget?"},
		Estimate:      map[string]any{"points": float64(5)},
		SourceFile:    "stories/core-1.json",
	}
}

func TestRenderMarkerFirstLine(t *testing.T) {
	body := Render(renderedIssue())

	lines := strings.Split(body, "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "**CORE-1** | Epic: CORE-0 | Estimate: 5 pts", lines[0])
}

func TestRenderContentHashTrailer(t *testing.T) {
	issue := renderedIssue()
	body := Render(issue)

	lines := strings.Split(body, "\n")
	last := lines[len(lines)-1]
	assert.Equal(t, fmt.Sprintf("*Content Hash: `%s`*", issue.ContentHash()), last)
	assert.Contains(t, body, "*Source: `stories/core-1.json`*")
}

func TestRenderSections(t *testing.T) {
	body := Render(renderedIssue())

	assert.Contains(t, body, "### Goals")
	assert.Contains(t, body, "- ship it")
	assert.Contains(t, body, "Build the widget end to end.")
	assert.Contains(t, body, "### User Story\n\n> As a user I want widgets.")
	assert.Contains(t, body, "### Acceptance Criteria")
	assert.Contains(t, body, "- **Given** a fresh install")
	assert.Contains(t, body, "- *Note: flaky on windows*")
	assert.Contains(t, body, "### Out of Scope\n\n- gadgets")
	assert.Contains(t, body, "### Open Questions\n\n- [ ] name of the widget?")
}

func TestRenderOmitsEmptySections(t *testing.T) {
	issue := &models.Issue{
		ID:          "CORE-2",
		Title:       "Minimal",
		Type:        "story",
		Description: "Just a description.",
	}
	body := Render(issue)

	assert.NotContains(t, body, "### Goals")
	assert.NotContains(t, body, "### User Story")
	assert.NotContains(t, body, "### Acceptance Criteria")
	assert.NotContains(t, body, "### State Machine")
	assert.NotContains(t, body, "Epic:")
	assert.Contains(t, body, "**CORE-2**")
}

func TestRenderStateMachine(t *testing.T) {
	issue := renderedIssue()
	issue.StateMachine = map[string]any{
		"initial": "idle",
		"states": []any{
			map[string]any{"name": "idle", "description": "waiting"},
			map[string]any{"name": "done", "description": "finished", "terminal": true},
		},
		"transitions": []any{
			map[string]any{"from": "idle", "to": "done", "trigger": "finish", "guard": "valid"},
		},
	}
	body := Render(issue)

	assert.Contains(t, body, "**Initial State:** `idle`")
	assert.Contains(t, body, "- `done` (terminal): finished")
	assert.Contains(t, body, "- `idle` → `done`: finish [valid]")
}

func TestRenderTechnicalContext(t *testing.T) {
	issue := renderedIssue()
	issue.TechnicalContext = map[string]any{
		"crates": []any{"serde", "tokio"},
		"files":  []any{"src/widget.rs"},
		"performance_constraints": map[string]any{
			"max_latency_ms": float64(50),
		},
	}
	body := Render(issue)

	assert.Contains(t, body, "**Crates:** `serde`, `tokio`")
	assert.Contains(t, body, "- `src/widget.rs`")
	assert.Contains(t, body, "- **Max Latency Ms:** 50")
}

func TestRenderStable(t *testing.T) {
	issue := renderedIssue()
	issue.TechnicalContext = map[string]any{
		"performance_constraints": map[string]any{
			"alpha": "a", "beta": "b", "gamma": "c", "delta": "d",
		},
	}
	issue.VisualMockups = map[string]any{
		"main_view":  map[string]any{"description": "the main view"},
		"error_view": map[string]any{"description": "the error view"},
	}

	first := Render(issue)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Render(issue))
	}
}
