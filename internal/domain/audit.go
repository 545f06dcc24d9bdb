package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionStatus is the lifecycle state of one deletion execution attempt.
// The exact strings are part of the persisted audit contract.
type ExecutionStatus string

const (
	StatusPending    ExecutionStatus = "pending"
	StatusInProgress ExecutionStatus = "in_progress"
	StatusCompleted  ExecutionStatus = "completed"
	StatusFailed     ExecutionStatus = "failed"
)

func (s ExecutionStatus) String() string { return string(s) }

func (s ExecutionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status is final for the execution.
// Terminal records are immutable; a retried policy produces a new record.
func (s ExecutionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether the transition s -> next is legal.
// Transitions are monotonic and one-directional:
//
//	pending -> in_progress -> {completed, failed}
//	pending -> completed            (dry run)
//	pending -> failed               (validation failure, lock contention)
func (s ExecutionStatus) CanTransitionTo(next ExecutionStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusCompleted || next == StatusFailed
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// TransitionSources returns the statuses from which next may be reached.
// The audit store uses this to guard UPDATEs so a terminal record can never
// be rewritten.
func TransitionSources(next ExecutionStatus) []ExecutionStatus {
	switch next {
	case StatusInProgress:
		return []ExecutionStatus{StatusPending}
	case StatusCompleted, StatusFailed:
		return []ExecutionStatus{StatusPending, StatusInProgress}
	}
	return nil
}

// DefaultDeletedBy is the system identity recorded on audit rows when no
// other actor is specified.
const DefaultDeletedBy = "retention_job"

// AuditRecord is the immutable record of one deletion execution attempt.
// Exactly one record exists per attempt; once terminal it is never mutated.
type AuditRecord struct {
	ID             uuid.UUID
	PolicyName     string
	TableName      string
	RecordCount    int64
	FilterCriteria string
	ExecutedAt     time.Time
	CompletedAt    *time.Time
	Status         ExecutionStatus
	ErrorMessage   *string
	DeletedBy      string
	DryRun         bool
}

// NewPendingRecord creates the pending audit record for an execution attempt.
// FilterCriteria snapshots the actual predicate used so the execution can be
// reproduced later.
func NewPendingRecord(policy RetentionPolicy, filterCriteria string, dryRun bool, now time.Time) AuditRecord {
	return AuditRecord{
		ID:             uuid.New(),
		PolicyName:     policy.PolicyName,
		TableName:      policy.TableName,
		FilterCriteria: filterCriteria,
		ExecutedAt:     now.UTC(),
		Status:         StatusPending,
		DeletedBy:      DefaultDeletedBy,
		DryRun:         dryRun,
	}
}

// AuditUpdate carries the fields written together with a status transition.
// Nil fields are left unchanged.
type AuditUpdate struct {
	RecordCount  *int64
	ErrorMessage *string
	CompletedAt  *time.Time
}
