package auditlog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/retentiond/internal/adapter/postgres/auditlog"
	"github.com/heartmarshall/retentiond/internal/domain"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var auditColumns = []string{
	"id", "policy_name", "table_name", "record_count", "filter_criteria",
	"executed_at", "completed_at", "status", "error_message", "deleted_by", "dry_run",
}

func pendingRecord() domain.AuditRecord {
	return domain.NewPendingRecord(
		domain.RetentionPolicy{PolicyName: "old_sessions", TableName: "sessions"},
		"created_at < '2025-05-02T00:00:00Z'",
		false,
		time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC),
	)
}

func rowFor(rec domain.AuditRecord) *pgxmock.Rows {
	return pgxmock.NewRows(auditColumns).AddRow(
		rec.ID, rec.PolicyName, rec.TableName, rec.RecordCount, rec.FilterCriteria,
		rec.ExecutedAt, rec.CompletedAt, string(rec.Status), rec.ErrorMessage, rec.DeletedBy, rec.DryRun,
	)
}

func TestCreate(t *testing.T) {
	mock := newMockPool(t)
	rec := pendingRecord()

	mock.ExpectQuery("INSERT INTO deletion_audit_logs").
		WithArgs(
			rec.ID, rec.PolicyName, rec.TableName, rec.RecordCount, rec.FilterCriteria,
			rec.ExecutedAt, rec.CompletedAt, string(rec.Status), rec.ErrorMessage, rec.DeletedBy, rec.DryRun,
		).
		WillReturnRows(rowFor(rec))

	repo := auditlog.New(mock)
	got, err := repo.Create(context.Background(), rec)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
	require.Equal(t, domain.StatusPending, got.Status)
	require.Equal(t, domain.DefaultDeletedBy, got.DeletedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDefaultsDeletedBy(t *testing.T) {
	mock := newMockPool(t)
	rec := pendingRecord()
	rec.DeletedBy = ""

	mock.ExpectQuery("INSERT INTO deletion_audit_logs").
		WithArgs(
			rec.ID, rec.PolicyName, rec.TableName, rec.RecordCount, rec.FilterCriteria,
			rec.ExecutedAt, rec.CompletedAt, string(rec.Status), rec.ErrorMessage, domain.DefaultDeletedBy, rec.DryRun,
		).
		WillReturnRows(rowFor(rec))

	repo := auditlog.New(mock)
	_, err := repo.Create(context.Background(), rec)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsInvalidStatus(t *testing.T) {
	repo := auditlog.New(newMockPool(t))
	rec := pendingRecord()
	rec.Status = "cancelled"

	_, err := repo.Create(context.Background(), rec)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestTransitionToInProgress(t *testing.T) {
	mock := newMockPool(t)
	id := uuid.New()

	// Guarded by the legal source statuses for in_progress.
	mock.ExpectExec("UPDATE deletion_audit_logs").
		WithArgs(string(domain.StatusInProgress), id, string(domain.StatusPending)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := auditlog.New(mock)
	err := repo.Transition(context.Background(), id, domain.StatusInProgress, domain.AuditUpdate{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionToCompletedWritesFields(t *testing.T) {
	mock := newMockPool(t)
	id := uuid.New()
	count := int64(10)
	completedAt := time.Date(2025, 6, 1, 3, 5, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE deletion_audit_logs").
		WithArgs(
			string(domain.StatusCompleted), count, completedAt,
			id, string(domain.StatusPending), string(domain.StatusInProgress),
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := auditlog.New(mock)
	err := repo.Transition(context.Background(), id, domain.StatusCompleted, domain.AuditUpdate{
		RecordCount: &count,
		CompletedAt: &completedAt,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A terminal record can never be rewritten; the guarded UPDATE matches no
// rows and the repo reports a conflict.
func TestTransitionTerminalRecordConflicts(t *testing.T) {
	mock := newMockPool(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE deletion_audit_logs").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := auditlog.New(mock)
	err := repo.Transition(context.Background(), id, domain.StatusFailed, domain.AuditUpdate{})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestTransitionToPendingRejected(t *testing.T) {
	repo := auditlog.New(newMockPool(t))

	err := repo.Transition(context.Background(), uuid.New(), domain.StatusPending, domain.AuditUpdate{})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestTransitionExecError(t *testing.T) {
	mock := newMockPool(t)
	cause := errors.New("connection reset")

	mock.ExpectExec("UPDATE deletion_audit_logs").WillReturnError(cause)

	repo := auditlog.New(mock)
	err := repo.Transition(context.Background(), uuid.New(), domain.StatusFailed, domain.AuditUpdate{})
	require.ErrorIs(t, err, cause)
}

func TestListFiltersAndOrder(t *testing.T) {
	mock := newMockPool(t)
	rec := pendingRecord()
	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM deletion_audit_logs WHERE policy_name = .+ AND status = .+ AND executed_at >= .+ ORDER BY executed_at DESC LIMIT 50").
		WithArgs("old_sessions", string(domain.StatusCompleted), from).
		WillReturnRows(rowFor(rec))

	repo := auditlog.New(mock)
	records, err := repo.List(context.Background(), auditlog.Filter{
		PolicyName: "old_sessions",
		Status:     domain.StatusCompleted,
		From:       &from,
		Limit:      50,
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "old_sessions", records[0].PolicyName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDefaultLimit(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery("SELECT .+ FROM deletion_audit_logs ORDER BY executed_at DESC LIMIT 100").
		WillReturnRows(pgxmock.NewRows(auditColumns))

	repo := auditlog.New(mock)
	records, err := repo.List(context.Background(), auditlog.Filter{})
	require.NoError(t, err)
	require.Empty(t, records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID(t *testing.T) {
	mock := newMockPool(t)
	rec := pendingRecord()

	mock.ExpectQuery("SELECT .+ FROM deletion_audit_logs WHERE id = .+").
		WithArgs(rec.ID).
		WillReturnRows(rowFor(rec))

	repo := auditlog.New(mock)
	got, err := repo.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec.ID, got.ID)
}
