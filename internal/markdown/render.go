// Package markdown renders issue definitions into remote-ready issue bodies.
//
// Two pieces of the output are load-bearing for sync reconciliation and must
// survive any re-render bit for bit: the body's first line contains the
// bolded issue id marker, and the final line carries the content hash.
package markdown

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/danielolaszy/issuesync/pkg/models"
)

// Render produces the markdown body for an issue, exclusive of the
// cross-reference lines the sync engine prepends and appends.
func Render(issue *models.Issue) string {
	sections := []string{
		renderHeader(issue),
		renderBody(issue),
	}

	if issue.UserStory != "" {
		sections = append(sections, "### User Story\n\n> "+issue.UserStory)
	}
	if len(issue.AcceptanceCriteria) > 0 {
		sections = append(sections, renderAcceptanceCriteria(issue.AcceptanceCriteria))
	}
	if len(issue.StateMachine) > 0 {
		sections = append(sections, renderStateMachine(issue.StateMachine))
	}
	if len(issue.TechnicalContext) > 0 {
		sections = append(sections, renderTechnicalContext(issue.TechnicalContext))
	}
	if len(issue.VisualMockups) > 0 {
		sections = append(sections, renderVisualMockups(issue.VisualMockups))
	}
	if len(issue.OutOfScope) > 0 {
		sections = append(sections, renderList("### Out of Scope", "- ", issue.OutOfScope))
	}
	if len(issue.OpenQuestions) > 0 {
		sections = append(sections, renderList("### Open Questions", "- [ ] ", issue.OpenQuestions))
	}

	sections = append(sections, renderMetadata(issue))

	nonEmpty := sections[:0]
	for _, section := range sections {
		if section != "" {
			nonEmpty = append(nonEmpty, section)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}

func renderHeader(issue *models.Issue) string {
	parts := []string{fmt.Sprintf("**%s**", issue.ID)}
	if issue.Epic != "" {
		parts = append(parts, "Epic: "+issue.Epic)
	}
	if issue.Estimate != nil {
		points := "?"
		if p, ok := issue.Estimate["points"]; ok {
			points = formatScalar(p)
		}
		parts = append(parts, fmt.Sprintf("Estimate: %s pts", points))
	}
	return strings.Join(parts, " | ")
}

func renderBody(issue *models.Issue) string {
	var lines []string
	if len(issue.Goals) > 0 {
		lines = append(lines, "### Goals", "")
		for _, goal := range issue.Goals {
			lines = append(lines, "- "+goal)
		}
		lines = append(lines, "")
	}
	lines = append(lines, issue.Description)
	return strings.Join(lines, "\n")
}

func renderAcceptanceCriteria(criteria []models.AcceptanceCriterion) string {
	lines := []string{"### Acceptance Criteria", ""}
	for _, ac := range criteria {
		lines = append(lines,
			fmt.Sprintf("**%s**", ac.ID),
			"- **Given** "+ac.Given,
			"- **When** "+ac.When,
			"- **Then** "+ac.Then,
		)
		if ac.Notes != "" {
			lines = append(lines, fmt.Sprintf("- *Note: %s*", ac.Notes))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func renderStateMachine(sm map[string]any) string {
	lines := []string{"### State Machine", ""}
	lines = append(lines, fmt.Sprintf("**Initial State:** `%s`", formatScalar(sm["initial"])), "")

	lines = append(lines, "#### States")
	for _, state := range asMaps(sm["states"]) {
		terminal := ""
		if b, ok := state["terminal"].(bool); ok && b {
			terminal = " (terminal)"
		}
		lines = append(lines, fmt.Sprintf("- `%s`%s: %s",
			formatScalar(state["name"]), terminal, formatScalar(state["description"])))
	}

	lines = append(lines, "", "#### Transitions")
	for _, t := range asMaps(sm["transitions"]) {
		guard := ""
		if g := formatScalar(t["guard"]); g != "" {
			guard = fmt.Sprintf(" [%s]", g)
		}
		lines = append(lines, fmt.Sprintf("- `%s` → `%s`: %s%s",
			formatScalar(t["from"]), formatScalar(t["to"]), formatScalar(t["trigger"]), guard))
	}
	return strings.Join(lines, "\n")
}

func renderTechnicalContext(tc map[string]any) string {
	lines := []string{"### Technical Context", ""}

	if crates := asStrings(tc["crates"]); len(crates) > 0 {
		lines = append(lines, fmt.Sprintf("**Crates:** `%s`", strings.Join(crates, "`, `")), "")
	}
	if files := asStrings(tc["files"]); len(files) > 0 {
		lines = append(lines, "**Files:**")
		for _, f := range files {
			lines = append(lines, fmt.Sprintf("- `%s`", f))
		}
		lines = append(lines, "")
	}

	if structures := asMaps(tc["data_structures"]); len(structures) > 0 {
		lines = append(lines, "#### Data Structures")
		for _, ds := range structures {
			lines = append(lines, "", fmt.Sprintf("**`%s`** - %s",
				formatScalar(ds["name"]), formatScalar(ds["description"])))
			if fields, ok := ds["fields"].(map[string]any); ok {
				for _, name := range sortedKeys(fields) {
					lines = append(lines, fmt.Sprintf("- `%s`: %s", name, formatScalar(fields[name])))
				}
			}
		}
	}

	if interfaces := asMaps(tc["interfaces"]); len(interfaces) > 0 {
		lines = append(lines, "", "#### Interfaces")
		for _, iface := range interfaces {
			lines = append(lines, "", fmt.Sprintf("**`%s`**", formatScalar(iface["name"])))
			lines = append(lines, "```rust\n"+formatScalar(iface["signature"])+"\n```")
			lines = append(lines, formatScalar(iface["description"]))
		}
	}

	if cases := asStrings(tc["error_cases"]); len(cases) > 0 {
		lines = append(lines, "", "#### Error Cases")
		for _, ec := range cases {
			lines = append(lines, "- "+ec)
		}
	}

	if pc, ok := tc["performance_constraints"].(map[string]any); ok && len(pc) > 0 {
		lines = append(lines, "", "#### Performance Constraints")
		for _, key := range sortedKeys(pc) {
			lines = append(lines, fmt.Sprintf("- **%s:** %s", titleFromKey(key), formatScalar(pc[key])))
		}
	}

	return strings.Join(lines, "\n")
}

func renderVisualMockups(mockups map[string]any) string {
	lines := []string{"### Visual Mockups", ""}
	for _, name := range sortedKeys(mockups) {
		mockup, ok := mockups[name].(map[string]any)
		if !ok {
			continue
		}

		lines = append(lines, "#### "+titleFromKey(name), "")
		if desc := formatScalar(mockup["description"]); desc != "" {
			lines = append(lines, desc, "")
		}

		switch content := mockup["content"].(type) {
		case []any:
			lines = append(lines, "```")
			for _, row := range content {
				lines = append(lines, formatScalar(row))
			}
			lines = append(lines, "```")
		case map[string]any:
			encoded, err := json.MarshalIndent(content, "", "  ")
			if err == nil {
				lines = append(lines, "```json", string(encoded), "```")
			}
		}

		for _, frame := range asMaps(mockup["frames"]) {
			lines = append(lines, "", fmt.Sprintf("**Frame %s** (%sms)",
				formatOr(frame["frame"], "?"), formatOr(frame["duration_ms"], "?")))
			if content := asStrings(frame["content"]); len(content) > 0 {
				lines = append(lines, "```")
				lines = append(lines, content...)
				lines = append(lines, "```")
			}
			if note := formatScalar(frame["note"]); note != "" {
				lines = append(lines, fmt.Sprintf("*%s*", note))
			}
		}

		if scheme, ok := mockup["color_scheme"].(map[string]any); ok && len(scheme) > 0 {
			lines = append(lines, "", "**Color Scheme:**")
			for _, elem := range sortedKeys(scheme) {
				lines = append(lines, fmt.Sprintf("- `%s`: %s", elem, formatScalar(scheme[elem])))
			}
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func renderList(header, prefix string, items []string) string {
	lines := []string{header, ""}
	for _, item := range items {
		lines = append(lines, prefix+item)
	}
	return strings.Join(lines, "\n")
}

func renderMetadata(issue *models.Issue) string {
	lines := []string{"---"}
	if issue.SourceFile != "" {
		lines = append(lines, fmt.Sprintf("*Source: `%s`*", issue.SourceFile))
	}
	lines = append(lines, fmt.Sprintf("*Content Hash: `%s`*", issue.ContentHash()))
	return strings.Join(lines, "\n")
}

// formatScalar renders a decoded JSON/YAML scalar. Whole-valued floats print
// without a fraction so numbers look the same from either decoder.
func formatScalar(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprintf("%v", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

func formatOr(v any, fallback string) string {
	if s := formatScalar(v); s != "" {
		return s
	}
	return fallback
}

func asStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, formatScalar(item))
	}
	return out
}

func asMaps(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func titleFromKey(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
