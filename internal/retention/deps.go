// Package retention implements the policy evaluation and transactional
// deletion engine: cutoff computation, allow-listed predicate building,
// audited deletion, and batch orchestration across policies.
package retention

import (
	"context"

	"github.com/google/uuid"

	"github.com/heartmarshall/retentiond/internal/domain"
)

// PolicySource supplies the enabled retention policies for a run.
// Satisfied by policystore.Repo.
type PolicySource interface {
	ListEnabled(ctx context.Context) ([]domain.RetentionPolicy, error)
}

// SchemaInspector reports whether tables and columns exist in the target
// schema. Satisfied by target.Repo.
type SchemaInspector interface {
	TableExists(ctx context.Context, table string) (bool, error)
	ColumnExists(ctx context.Context, table, column string) (bool, error)
}

// TargetStore runs counts and deletes against a policy's target table.
// Both operations join a transaction carried in ctx, if any.
// Satisfied by target.Repo.
type TargetStore interface {
	CountMatching(ctx context.Context, table string, pred domain.Predicate) (int64, error)
	DeleteMatching(ctx context.Context, table string, pred domain.Predicate) (int64, error)
}

// Locker serializes executions of the same policy across overlapping runs.
// Acquire returns domain.ErrLockContention when the lock is already held;
// the returned release func must be called once the execution is terminal.
// Satisfied by target.AdvisoryLocker.
type Locker interface {
	Acquire(ctx context.Context, policyName string) (release func(context.Context), err error)
}

// AuditLog is the append-only store of execution attempts.
// Satisfied by auditlog.Repo.
type AuditLog interface {
	Create(ctx context.Context, rec domain.AuditRecord) (domain.AuditRecord, error)
	Transition(ctx context.Context, id uuid.UUID, next domain.ExecutionStatus, upd domain.AuditUpdate) error
}

// TxRunner executes a function within a database transaction.
// Satisfied by postgres.TxManager.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
