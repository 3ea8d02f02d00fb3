package loader

import (
	"strings"

	"github.com/danielolaszy/issuesync/pkg/models"
)

// Index is a read-only lookup structure over one loaded batch of issues.
type Index struct {
	byID     map[string]*models.Issue
	byTitle  map[string]*models.Issue
	children map[string][]string
}

// NewIndex builds an index over the given issues. Title collisions are not
// an error; the last-loaded issue wins.
func NewIndex(issues []*models.Issue) *Index {
	idx := &Index{
		byID:     make(map[string]*models.Issue, len(issues)),
		byTitle:  make(map[string]*models.Issue, len(issues)),
		children: make(map[string][]string),
	}

	for _, issue := range issues {
		idx.byID[issue.ID] = issue
		idx.byTitle[normalizeTitle(issue.Title)] = issue
		if issue.Epic != "" {
			idx.children[issue.Epic] = append(idx.children[issue.Epic], issue.ID)
		}
	}
	return idx
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Get returns the issue with the given id, or nil.
func (idx *Index) Get(issueID string) *models.Issue {
	return idx.byID[issueID]
}

// FindByTitle returns the issue whose title matches case-insensitively after
// trimming whitespace, or nil.
func (idx *Index) FindByTitle(title string) *models.Issue {
	return idx.byTitle[normalizeTitle(title)]
}

// ChildrenOf returns the issues whose epic field equals epicID, in
// first-declared order.
func (idx *Index) ChildrenOf(epicID string) []*models.Issue {
	ids := idx.children[epicID]
	children := make([]*models.Issue, 0, len(ids))
	for _, id := range ids {
		if issue, ok := idx.byID[id]; ok {
			children = append(children, issue)
		}
	}
	return children
}

// Len returns the number of indexed issues.
func (idx *Index) Len() int {
	return len(idx.byID)
}
