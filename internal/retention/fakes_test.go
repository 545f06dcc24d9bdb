package retention

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/retentiond/internal/domain"
)

// fakeInspector answers schema introspection from in-memory maps.
type fakeInspector struct {
	tables  map[string]bool
	columns map[string]bool // "table.column"
	err     error
}

func (f *fakeInspector) TableExists(_ context.Context, table string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.tables[table], nil
}

func (f *fakeInspector) ColumnExists(_ context.Context, table, column string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.columns[table+"."+column], nil
}

// fakeTargets simulates a target table with a fixed matching-row count.
// DeleteMatching consumes the rows so a second run sees zero.
type fakeTargets struct {
	matching int64
	deleted  int64 // rows removed if delete succeeds, defaults to matching

	countErr  error
	deleteErr error

	countCalls  int
	deleteCalls int
}

func (f *fakeTargets) CountMatching(_ context.Context, _ string, _ domain.Predicate) (int64, error) {
	f.countCalls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.matching, nil
}

func (f *fakeTargets) DeleteMatching(_ context.Context, _ string, _ domain.Predicate) (int64, error) {
	f.deleteCalls++
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	n := f.matching
	if f.deleted > 0 {
		n = f.deleted
	}
	f.matching -= n
	return n, nil
}

// fakeAudit is an in-memory audit store enforcing the same transition guard
// as the real one.
type fakeAudit struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.AuditRecord
	order   []uuid.UUID

	createErr     error
	transitionErr error
}

func newFakeAudit() *fakeAudit {
	return &fakeAudit{records: make(map[uuid.UUID]*domain.AuditRecord)}
}

func (f *fakeAudit) Create(_ context.Context, rec domain.AuditRecord) (domain.AuditRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.AuditRecord{}, f.createErr
	}
	if rec.DeletedBy == "" {
		rec.DeletedBy = domain.DefaultDeletedBy
	}
	stored := rec
	f.records[rec.ID] = &stored
	f.order = append(f.order, rec.ID)
	return rec, nil
}

func (f *fakeAudit) Transition(_ context.Context, id uuid.UUID, next domain.ExecutionStatus, upd domain.AuditUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transitionErr != nil {
		return f.transitionErr
	}
	rec, ok := f.records[id]
	if !ok {
		return fmt.Errorf("audit_record %s: %w", id, domain.ErrNotFound)
	}
	if !rec.Status.CanTransitionTo(next) {
		return fmt.Errorf("audit_record %s: %s -> %s: %w", id, rec.Status, next, domain.ErrConflict)
	}
	rec.Status = next
	if upd.RecordCount != nil {
		rec.RecordCount = *upd.RecordCount
	}
	if upd.ErrorMessage != nil {
		rec.ErrorMessage = upd.ErrorMessage
	}
	if upd.CompletedAt != nil {
		rec.CompletedAt = upd.CompletedAt
	}
	return nil
}

// all returns the stored records in creation order.
func (f *fakeAudit) all() []domain.AuditRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.AuditRecord, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.records[id])
	}
	return out
}

// byPolicy returns the records for one policy in creation order.
func (f *fakeAudit) byPolicy(name string) []domain.AuditRecord {
	var out []domain.AuditRecord
	for _, rec := range f.all() {
		if rec.PolicyName == name {
			out = append(out, rec)
		}
	}
	return out
}

// fakeLocker grants or denies the policy execution lock.
type fakeLocker struct {
	contended bool
	err       error

	acquired []string
	released int
}

func (f *fakeLocker) Acquire(_ context.Context, policyName string) (func(context.Context), error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.contended {
		return nil, fmt.Errorf("policy %q: %w", policyName, domain.ErrLockContention)
	}
	f.acquired = append(f.acquired, policyName)
	return func(context.Context) { f.released++ }, nil
}

// fakeTx runs the function directly, optionally failing after it ran to
// simulate a rollback of work already performed.
type fakeTx struct {
	beginErr  error
	commitErr error

	onRollback func()
	calls      int
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if f.beginErr != nil {
		return f.beginErr
	}
	if err := fn(ctx); err != nil {
		if f.onRollback != nil {
			f.onRollback()
		}
		return err
	}
	if f.commitErr != nil {
		if f.onRollback != nil {
			f.onRollback()
		}
		return f.commitErr
	}
	return nil
}

// fakePolicies is a fixed policy source.
type fakePolicies struct {
	policies []domain.RetentionPolicy
	err      error
}

func (f *fakePolicies) ListEnabled(_ context.Context) ([]domain.RetentionPolicy, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.policies, nil
}
