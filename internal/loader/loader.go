// Package loader reads locally authored issue definitions from disk.
package loader

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielolaszy/issuesync/pkg/models"
)

// requiredFiles must exist at the root of the issues directory before any
// remote call is attempted.
var requiredFiles = []string{"_schema.json", "_labels.json", "_milestones.json"}

// issueSubdirs are the subtrees scanned for issue definition files.
var issueSubdirs = []string{"epics", "stories"}

// LabelDefinition is one entry of _labels.json.
type LabelDefinition struct {
	Name        string `json:"name" yaml:"name"`
	Color       string `json:"color" yaml:"color"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// MilestoneDefinition is one entry of _milestones.json.
type MilestoneDefinition struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Loader reads issues, labels, and milestones from an issues directory.
type Loader struct {
	dir string
}

// New validates the directory layout and returns a loader for it. The
// required control files must exist; their absence fails the whole run
// before anything touches the network.
func New(dir string) (*Loader, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("issues directory not found: %s", dir)
	}

	var missing []string
	for _, name := range requiredFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required files: %v", missing)
	}

	return &Loader{dir: dir}, nil
}

// Dir returns the issues directory the loader was built for.
func (l *Loader) Dir() string {
	return l.dir
}

// LoadLabels reads the label definitions from _labels.json.
func (l *Loader) LoadLabels() ([]LabelDefinition, error) {
	raw, err := os.ReadFile(filepath.Join(l.dir, "_labels.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read _labels.json: %w", err)
	}

	var payload struct {
		Labels []LabelDefinition `json:"labels"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse _labels.json: %w", err)
	}
	return payload.Labels, nil
}

// LoadMilestones reads the milestone definitions from _milestones.json.
func (l *Loader) LoadMilestones() ([]MilestoneDefinition, error) {
	raw, err := os.ReadFile(filepath.Join(l.dir, "_milestones.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read _milestones.json: %w", err)
	}

	var payload struct {
		Milestones []MilestoneDefinition `json:"milestones"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse _milestones.json: %w", err)
	}
	return payload.Milestones, nil
}

// LoadIndex reads the optional _index.json file.
func (l *Loader) LoadIndex() (map[string]any, error) {
	raw, err := os.ReadFile(filepath.Join(l.dir, "_index.json"))
	if err != nil {
		return nil, fmt.Errorf("_index.json not found: %w", err)
	}

	var index map[string]any
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("failed to parse _index.json: %w", err)
	}
	return index, nil
}

// issueFiles returns all issue definition files under the epics and stories
// subtrees, in a stable walk order.
func (l *Loader) issueFiles() ([]string, error) {
	var files []string
	for _, subdir := range issueSubdirs {
		root := filepath.Join(l.dir, subdir)
		if _, err := os.Stat(root); err != nil {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".json", ".yaml", ".yml":
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}
	}
	return files, nil
}

// LoadIssue reads a single issue definition file, JSON or YAML by extension.
func (l *Loader) LoadIssue(path string) (*models.Issue, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var issue models.Issue
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &issue); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(raw, &issue); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if issue.ID == "" {
		return nil, fmt.Errorf("issue file %s has no id", path)
	}

	if rel, err := filepath.Rel(l.dir, path); err == nil {
		issue.SourceFile = rel
	}
	return &issue, nil
}

// LoadAllIssues reads every issue definition in the directory. Issue ids
// must be unique within one load.
func (l *Loader) LoadAllIssues() ([]*models.Issue, error) {
	files, err := l.issueFiles()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(files))
	issues := make([]*models.Issue, 0, len(files))
	for _, path := range files {
		issue, err := l.LoadIssue(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[issue.ID]; ok {
			return nil, fmt.Errorf("duplicate issue id %s in %s (already defined in %s)", issue.ID, path, prev)
		}
		seen[issue.ID] = path
		issues = append(issues, issue)
	}
	return issues, nil
}

// TopologicalOrder sequences issues so that every issue appears after its
// dependencies and its parent epic. Ids that don't resolve to a loaded issue
// are ignored: cross-references may point outside the loaded set. Cycles do
// not error; the visited set simply stops re-visitation, so under a true
// cycle the output contains every issue exactly once but may not be a valid
// topological order. That limitation is accepted.
func TopologicalOrder(issues []*models.Issue) []*models.Issue {
	byID := make(map[string]*models.Issue, len(issues))
	for _, issue := range issues {
		byID[issue.ID] = issue
	}

	visited := make(map[string]bool, len(issues))
	result := make([]*models.Issue, 0, len(issues))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		issue, ok := byID[id]
		if !ok {
			return
		}
		for _, dep := range issue.DependsOn {
			visit(dep)
		}
		if issue.Epic != "" {
			visit(issue.Epic)
		}
		result = append(result, issue)
	}

	for _, issue := range issues {
		visit(issue.ID)
	}
	return result
}
