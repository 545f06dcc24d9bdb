package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/heartmarshall/retentiond/internal/domain"
)

// Result is the outcome of one policy execution.
type Result struct {
	Record      domain.AuditRecord
	RecordCount int64
	// Warning is set when the pre-delete count and the actual deleted count
	// differ, which happens when concurrent writers change the matching set.
	// Expected, not exceptional.
	Warning string
}

// Handler executes one policy's deletion (or dry run) transactionally,
// driving the audit record through its states. Every call leaves the audit
// record terminal unless the process itself dies; recovering a dangling
// pending record is a separate reconciliation concern.
type Handler struct {
	audit   AuditLog
	targets TargetStore
	locks   Locker
	tx      TxRunner
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a deletion handler. timeout bounds each policy's
// transaction; 0 disables the bound.
func NewHandler(audit AuditLog, targets TargetStore, locks Locker, tx TxRunner, timeout time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		audit:   audit,
		targets: targets,
		locks:   locks,
		tx:      tx,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "retention.handler")),
		now:     time.Now,
	}
}

// Execute runs the policy against the already-built predicate.
//
// The pending audit record is created before the target table is touched, so
// an audit trail exists even if the process dies before deletion begins. A
// dry run only counts. A real run acquires the policy execution lock, moves
// the record to in_progress, and deletes inside a single transaction where
// the pre-delete count and the delete see the same data. On any transaction
// error the delete is rolled back fully and the record is marked failed.
func (h *Handler) Execute(ctx context.Context, policy domain.RetentionPolicy, pred domain.Predicate, dryRun bool) (Result, error) {
	rec, err := h.audit.Create(ctx, domain.NewPendingRecord(policy, pred.String(), dryRun, h.now()))
	if err != nil {
		return Result{}, fmt.Errorf("create audit record for %q: %w: %w", policy.PolicyName, domain.ErrAuditUnavailable, err)
	}

	if dryRun {
		return h.executeDryRun(ctx, policy, pred, rec)
	}
	return h.executeDelete(ctx, policy, pred, rec)
}

func (h *Handler) executeDryRun(ctx context.Context, policy domain.RetentionPolicy, pred domain.Predicate, rec domain.AuditRecord) (Result, error) {
	count, err := h.targets.CountMatching(ctx, policy.TableName, pred)
	if err != nil {
		if ferr := h.markFailed(ctx, rec, err); ferr != nil {
			return Result{Record: rec}, ferr
		}
		return Result{Record: rec}, fmt.Errorf("dry run count for %q: %w", policy.PolicyName, err)
	}

	if err := h.transition(ctx, &rec, domain.StatusCompleted, domain.AuditUpdate{
		RecordCount: &count,
		CompletedAt: ptrTime(h.now()),
	}); err != nil {
		return Result{Record: rec}, err
	}
	rec.RecordCount = count

	h.logger.Info("dry run completed",
		slog.String("policy", policy.PolicyName),
		slog.String("table", policy.TableName),
		slog.Int64("matching", count),
	)
	return Result{Record: rec, RecordCount: count}, nil
}

func (h *Handler) executeDelete(ctx context.Context, policy domain.RetentionPolicy, pred domain.Predicate, rec domain.AuditRecord) (Result, error) {
	release, err := h.locks.Acquire(ctx, policy.PolicyName)
	if err != nil {
		if ferr := h.markFailed(ctx, rec, err); ferr != nil {
			return Result{Record: rec}, ferr
		}
		return Result{Record: rec}, fmt.Errorf("lock policy %q: %w", policy.PolicyName, err)
	}
	defer release(context.WithoutCancel(ctx))

	if err := h.transition(ctx, &rec, domain.StatusInProgress, domain.AuditUpdate{}); err != nil {
		return Result{Record: rec}, err
	}

	txCtx := ctx
	cancel := context.CancelFunc(func() {})
	if h.timeout > 0 {
		txCtx, cancel = context.WithTimeout(ctx, h.timeout)
	}
	defer cancel()

	var expected, deleted int64
	txErr := h.tx.RunInTx(txCtx, func(ctx context.Context) error {
		var err error
		expected, err = h.targets.CountMatching(ctx, policy.TableName, pred)
		if err != nil {
			return fmt.Errorf("count matching rows: %w", err)
		}
		deleted, err = h.targets.DeleteMatching(ctx, policy.TableName, pred)
		if err != nil {
			return fmt.Errorf("delete matching rows: %w", err)
		}
		return nil
	})
	if txErr != nil {
		// The transaction rolled back; no partial deletes survive. The audit
		// transition uses the parent context because txCtx may be expired.
		if ferr := h.markFailed(context.WithoutCancel(ctx), rec, txErr); ferr != nil {
			return Result{Record: rec}, ferr
		}
		return Result{Record: rec}, fmt.Errorf("execute policy %q: %w", policy.PolicyName, txErr)
	}

	if err := h.transition(ctx, &rec, domain.StatusCompleted, domain.AuditUpdate{
		RecordCount: &deleted,
		CompletedAt: ptrTime(h.now()),
	}); err != nil {
		return Result{Record: rec}, err
	}
	rec.RecordCount = deleted

	result := Result{Record: rec, RecordCount: deleted}
	if expected != deleted {
		result.Warning = fmt.Sprintf("matched %d rows before delete but deleted %d (concurrent modification)", expected, deleted)
		h.logger.Warn("count/delete discrepancy",
			slog.String("policy", policy.PolicyName),
			slog.Int64("expected", expected),
			slog.Int64("deleted", deleted),
		)
	}

	h.logger.Info("deletion completed",
		slog.String("policy", policy.PolicyName),
		slog.String("table", policy.TableName),
		slog.Int64("deleted", deleted),
	)
	return result, nil
}

// transition moves the audit record to next and mirrors the change on rec.
// A transition failure means the audit store no longer reflects reality, so
// it escalates as domain.ErrAuditUnavailable.
func (h *Handler) transition(ctx context.Context, rec *domain.AuditRecord, next domain.ExecutionStatus, upd domain.AuditUpdate) error {
	if err := h.audit.Transition(ctx, rec.ID, next, upd); err != nil {
		return fmt.Errorf("transition audit record %s to %s: %w: %w", rec.ID, next, domain.ErrAuditUnavailable, err)
	}
	rec.Status = next
	if upd.CompletedAt != nil {
		rec.CompletedAt = upd.CompletedAt
	}
	return nil
}

// markFailed records the terminal failed state with the captured error.
func (h *Handler) markFailed(ctx context.Context, rec domain.AuditRecord, cause error) error {
	msg := cause.Error()
	return h.transition(ctx, &rec, domain.StatusFailed, domain.AuditUpdate{
		ErrorMessage: &msg,
		CompletedAt:  ptrTime(h.now()),
	})
}

func ptrTime(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
