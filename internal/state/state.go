// Package state persists per-issue sync outcomes across runs.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/danielolaszy/issuesync/pkg/models"
)

// Manager owns the durable sync state file. Every mutating method persists
// the full state synchronously before returning, so a crash loses at most
// the in-flight action.
type Manager struct {
	path  string
	state *models.SyncState
}

// NewManager returns a manager bound to the given state file path. The file
// is not read until the state is first needed.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// State returns the current state, loading it from disk on first use. A
// missing or corrupt file is treated as no prior run.
func (m *Manager) State() *models.SyncState {
	if m.state == nil {
		m.state = m.loadOrCreate()
	}
	return m.state
}

func (m *Manager) loadOrCreate() *models.SyncState {
	raw, err := os.ReadFile(m.path)
	if err == nil {
		var loaded models.SyncState
		if err := json.Unmarshal(raw, &loaded); err == nil && loaded.RunID != "" {
			if loaded.Records == nil {
				loaded.Records = make(map[string]*models.SyncRecord)
			}
			return &loaded
		}
	}
	return freshState()
}

func freshState() *models.SyncState {
	return &models.SyncState{
		RunID:     uuid.NewString()[:8],
		StartedAt: time.Now().UTC(),
		Records:   make(map[string]*models.SyncRecord),
	}
}

// Save writes the full state to disk, creating the parent directory when
// missing.
func (m *Manager) Save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	raw, err := json.MarshalIndent(m.State(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := os.WriteFile(m.path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// Reset deletes the persisted state file and drops the in-memory state.
func (m *Manager) Reset() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	m.state = nil
	return nil
}

// StartNewRun replaces the current state with a fresh run and persists it.
func (m *Manager) StartNewRun() (string, error) {
	m.state = freshState()
	if err := m.Save(); err != nil {
		return "", err
	}
	return m.state.RunID, nil
}

// MarkStarted creates or overwrites the record for issueID as in-progress
// with the given action.
func (m *Manager) MarkStarted(issueID string, action models.SyncAction) error {
	m.State().Records[issueID] = &models.SyncRecord{
		IssueID:   issueID,
		Action:    action,
		Status:    models.StatusInProgress,
		Timestamp: time.Now().UTC(),
	}
	return m.Save()
}

// MarkCompleted transitions the record to completed, recording the remote
// number and the content hash that was synced. A missing record is a silent
// no-op.
func (m *Manager) MarkCompleted(issueID string, githubNumber int, contentHash string) error {
	if record, ok := m.State().Records[issueID]; ok {
		record.Status = models.StatusCompleted
		record.GitHubNumber = &githubNumber
		record.ContentHash = contentHash
		record.Timestamp = time.Now().UTC()
	}
	return m.Save()
}

// MarkFailed transitions the record to failed with the error text. A missing
// record is a silent no-op.
func (m *Manager) MarkFailed(issueID string, errMsg string) error {
	if record, ok := m.State().Records[issueID]; ok {
		record.Status = models.StatusFailed
		record.Error = errMsg
		record.Timestamp = time.Now().UTC()
	}
	return m.Save()
}

// MarkSkipped transitions the record to skipped, recording the remote number
// when known. A missing record is a silent no-op.
func (m *Manager) MarkSkipped(issueID string, githubNumber *int) error {
	if record, ok := m.State().Records[issueID]; ok {
		record.Status = models.StatusSkipped
		record.GitHubNumber = githubNumber
		record.Timestamp = time.Now().UTC()
	}
	return m.Save()
}

// MarkRunCompleted stamps the run's completion time.
func (m *Manager) MarkRunCompleted() error {
	now := time.Now().UTC()
	m.State().CompletedAt = &now
	return m.Save()
}

// NeedsSync reports whether the issue is stale relative to the last
// successful sync recorded here.
func (m *Manager) NeedsSync(issue *models.Issue) bool {
	return m.State().NeedsSync(issue)
}

// GitHubNumber returns the recorded remote number for the issue, or nil.
func (m *Manager) GitHubNumber(issueID string) *int {
	if record, ok := m.State().Records[issueID]; ok {
		return record.GitHubNumber
	}
	return nil
}

// Summary returns the count of records per status.
func (m *Manager) Summary() map[models.SyncStatus]int {
	counts := map[models.SyncStatus]int{
		models.StatusPending:    0,
		models.StatusInProgress: 0,
		models.StatusCompleted:  0,
		models.StatusFailed:     0,
		models.StatusSkipped:    0,
	}
	for _, record := range m.State().Records {
		counts[record.Status]++
	}
	return counts
}
