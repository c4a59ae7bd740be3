package models

import (
	"errors"
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a [SyncRun].
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

func (s RunStatus) Valid() bool {
	switch s {
	case RunRunning, RunCompleted, RunFailed:
		return true
	default:
		return false
	}
}

// SyncRun records one invocation of a directory sync.
type SyncRun struct {
	id                  string
	sequence            int
	source              string
	destination         string
	status              RunStatus
	preservePermissions bool
	workers             int
	stats               Stats
	errorMessage        string
	startedAt           time.Time
	completedAt         *time.Time
	createdAt           time.Time
	updatedAt           time.Time
	deletedAt           *time.Time
}

// NewSyncRun creates a running [SyncRun] started now.
func NewSyncRun(sequence int, source, destination string, preservePermissions bool, workers int) *SyncRun {
	now := time.Now()
	return &SyncRun{
		sequence:            sequence,
		source:              source,
		destination:         destination,
		status:              RunRunning,
		preservePermissions: preservePermissions,
		workers:             workers,
		startedAt:           now,
		createdAt:           now,
		updatedAt:           now,
	}
}

// RestoreSyncRun rebuilds a [SyncRun] from stored columns.
func RestoreSyncRun(
	id string, sequence int, source, destination string, status RunStatus,
	preservePermissions bool, workers int, stats Stats, errorMessage string,
	startedAt time.Time, completedAt *time.Time, createdAt, updatedAt time.Time, deletedAt *time.Time,
) *SyncRun {
	return &SyncRun{
		id:                  id,
		sequence:            sequence,
		source:              source,
		destination:         destination,
		status:              status,
		preservePermissions: preservePermissions,
		workers:             workers,
		stats:               stats,
		errorMessage:        errorMessage,
		startedAt:           startedAt,
		completedAt:         completedAt,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
		deletedAt:           deletedAt,
	}
}

func (r *SyncRun) ID() string                { return r.id }
func (r *SyncRun) Sequence() int             { return r.sequence }
func (r *SyncRun) Source() string            { return r.source }
func (r *SyncRun) Destination() string       { return r.destination }
func (r *SyncRun) Status() RunStatus         { return r.status }
func (r *SyncRun) PreservePermissions() bool { return r.preservePermissions }
func (r *SyncRun) Workers() int              { return r.workers }
func (r *SyncRun) Stats() Stats              { return r.stats }
func (r *SyncRun) ErrorMessage() string      { return r.errorMessage }
func (r *SyncRun) StartedAt() time.Time      { return r.startedAt }
func (r *SyncRun) CompletedAt() *time.Time   { return r.completedAt }
func (r *SyncRun) CreatedAt() time.Time      { return r.createdAt }
func (r *SyncRun) UpdatedAt() time.Time      { return r.updatedAt }
func (r *SyncRun) DeletedAt() *time.Time     { return r.deletedAt }

func (r *SyncRun) SetID(id string)          { r.id = id }
func (r *SyncRun) SetSequence(seq int)      { r.sequence = seq }
func (r *SyncRun) SetUpdatedAt(t time.Time) { r.updatedAt = t }
func (r *SyncRun) SetStats(stats Stats)     { r.stats = stats }

// Duration is the time between start and completion, or since start while running.
func (r *SyncRun) Duration() time.Duration {
	if r.completedAt == nil {
		return time.Since(r.startedAt)
	}
	return r.completedAt.Sub(r.startedAt)
}

// Finish marks the run completed, or failed when err is non-nil, and records stats.
func (r *SyncRun) Finish(stats Stats, err error) {
	now := time.Now()
	r.stats = stats
	r.completedAt = &now
	r.updatedAt = now
	if err != nil {
		r.status = RunFailed
		r.errorMessage = err.Error()
		return
	}
	r.status = RunCompleted
	r.errorMessage = ""
}

// Validate checks required fields and status consistency.
func (r *SyncRun) Validate() error {
	if r.source == "" {
		return errors.New("source is required")
	}
	if r.destination == "" {
		return errors.New("destination is required")
	}
	if !r.status.Valid() {
		return fmt.Errorf("invalid status %q", r.status)
	}
	if r.workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", r.workers)
	}
	if r.status == RunFailed && r.errorMessage == "" {
		return errors.New("failed runs require an error message")
	}
	return nil
}
