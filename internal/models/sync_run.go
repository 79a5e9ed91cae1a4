package models

import (
	"fmt"
	"time"
)

// Sync run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Sync run kinds.
const (
	RunKindIndex    = "index"
	RunKindDownload = "download"
	RunKindSync     = "sync"
)

// SyncRun records one indexing, download, or combined sync operation for
// history and stats.
type SyncRun struct {
	id              string
	sequence        int
	kind            string
	albumID         string // empty for whole-library runs
	status          string
	itemsIndexed    int
	itemsDownloaded int
	itemsFailed     int
	errorMessage    string
	startedAt       *time.Time
	completedAt     *time.Time
	createdAt       time.Time
	updatedAt       time.Time
	deletedAt       *time.Time
}

// NewSyncRun creates a run record in the running state.
func NewSyncRun(sequence int, kind, albumID string) *SyncRun {
	now := time.Now()
	return &SyncRun{
		sequence:  sequence,
		kind:      kind,
		albumID:   albumID,
		status:    RunStatusRunning,
		startedAt: &now,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *SyncRun) ID() string { return s.id }
func (s *SyncRun) CreatedAt() time.Time { return s.createdAt }
func (s *SyncRun) UpdatedAt() time.Time { return s.updatedAt }

// Validate checks kind and status against the known values.
func (s *SyncRun) Validate() error {
	switch s.kind {
	case RunKindIndex, RunKindDownload, RunKindSync:
	default:
		return fmt.Errorf("unknown run kind %q", s.kind)
	}
	switch s.status {
	case RunStatusRunning, RunStatusCompleted, RunStatusFailed:
	default:
		return fmt.Errorf("unknown run status %q", s.status)
	}
	return nil
}

func (s *SyncRun) Sequence() int { return s.sequence }
func (s *SyncRun) Kind() string { return s.kind }
func (s *SyncRun) AlbumID() string { return s.albumID }
func (s *SyncRun) Status() string { return s.status }
func (s *SyncRun) ItemsIndexed() int { return s.itemsIndexed }
func (s *SyncRun) ItemsDownloaded() int { return s.itemsDownloaded }
func (s *SyncRun) ItemsFailed() int { return s.itemsFailed }
func (s *SyncRun) ErrorMessage() string { return s.errorMessage }
func (s *SyncRun) StartedAt() *time.Time { return s.startedAt }
func (s *SyncRun) CompletedAt() *time.Time { return s.completedAt }
func (s *SyncRun) DeletedAt() *time.Time { return s.deletedAt }

func (s *SyncRun) SetID(id string) { s.id = id }
func (s *SyncRun) SetUpdatedAt(t time.Time) { s.updatedAt = t }
func (s *SyncRun) SetDeletedAt(t *time.Time) { s.deletedAt = t }
func (s *SyncRun) SetStatus(status string) { s.status = status }
func (s *SyncRun) SetItemsIndexed(n int) { s.itemsIndexed = n }
func (s *SyncRun) SetItemsDownloaded(n int) { s.itemsDownloaded = n }
func (s *SyncRun) SetItemsFailed(n int) { s.itemsFailed = n }
func (s *SyncRun) SetErrorMessage(msg string) { s.errorMessage = msg }
func (s *SyncRun) SetStartedAt(t *time.Time) { s.startedAt = t }
func (s *SyncRun) SetCompletedAt(t *time.Time) { s.completedAt = t }

// Complete marks the run finished with the final counters.
func (s *SyncRun) Complete(indexed, downloaded, failed int) {
	now := time.Now()
	s.status = RunStatusCompleted
	s.itemsIndexed = indexed
	s.itemsDownloaded = downloaded
	s.itemsFailed = failed
	s.completedAt = &now
	s.updatedAt = now
}

// Fail marks the run failed with the error that stopped it.
func (s *SyncRun) Fail(err error) {
	now := time.Now()
	s.status = RunStatusFailed
	if err != nil {
		s.errorMessage = err.Error()
	}
	s.completedAt = &now
	s.updatedAt = now
}

// Duration returns the elapsed wall time of the run, zero when unstarted.
func (s *SyncRun) Duration() time.Duration {
	if s.startedAt == nil {
		return 0
	}
	end := time.Now()
	if s.completedAt != nil {
		end = *s.completedAt
	}
	return end.Sub(*s.startedAt)
}
