// Package auditlog implements the deletion audit log repository using
// PostgreSQL. The store is append-only: records are created pending and
// driven through monotonic status transitions; a terminal record is never
// rewritten.
package auditlog

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/heartmarshall/retentiond/internal/adapter/postgres"
	"github.com/heartmarshall/retentiond/internal/domain"
)

const table = "deletion_audit_logs"

var columns = []string{
	"id", "policy_name", "table_name", "record_count", "filter_criteria",
	"executed_at", "completed_at", "status", "error_message", "deleted_by", "dry_run",
}

var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo provides audit log persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new audit log repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new audit record and returns the persisted row.
func (r *Repo) Create(ctx context.Context, rec domain.AuditRecord) (domain.AuditRecord, error) {
	if !rec.Status.IsValid() {
		return domain.AuditRecord{}, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, rec.Status)
	}
	if rec.DeletedBy == "" {
		rec.DeletedBy = domain.DefaultDeletedBy
	}

	sql, args, err := builder.Insert(table).
		Columns(columns...).
		Values(
			rec.ID, rec.PolicyName, rec.TableName, rec.RecordCount, rec.FilterCriteria,
			rec.ExecutedAt, rec.CompletedAt, string(rec.Status), rec.ErrorMessage, rec.DeletedBy, rec.DryRun,
		).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("build insert audit_record: %w", err)
	}

	var row auditRow
	q := postgres.QuerierFromCtx(ctx, r.db)
	if err := pgxscan.Get(ctx, q, &row, sql, args...); err != nil {
		return domain.AuditRecord{}, postgres.MapError(err, "audit_record", rec.ID.String())
	}

	return row.toDomain(), nil
}

// Transition moves the record to next, writing the update fields in the same
// statement. The UPDATE is guarded by the legal source statuses for next, so
// an already-terminal record can never be rewritten; that case surfaces as
// domain.ErrConflict.
func (r *Repo) Transition(ctx context.Context, id uuid.UUID, next domain.ExecutionStatus, upd domain.AuditUpdate) error {
	sources := domain.TransitionSources(next)
	if len(sources) == 0 {
		return fmt.Errorf("%w: no transition leads to status %q", domain.ErrValidation, next)
	}
	sourceStrings := make([]string, len(sources))
	for i, s := range sources {
		sourceStrings[i] = string(s)
	}

	q := builder.Update(table).
		Set("status", string(next)).
		Where(squirrel.Eq{"id": id, "status": sourceStrings})
	if upd.RecordCount != nil {
		q = q.Set("record_count", *upd.RecordCount)
	}
	if upd.ErrorMessage != nil {
		q = q.Set("error_message", *upd.ErrorMessage)
	}
	if upd.CompletedAt != nil {
		q = q.Set("completed_at", *upd.CompletedAt)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build transition audit_record: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, "audit_record", id.String())
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("audit_record %s: transition to %q rejected (missing or already terminal): %w", id, next, domain.ErrConflict)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Read operations (compliance reporting)
// ---------------------------------------------------------------------------

// Filter narrows audit log queries. Zero-valued fields are ignored.
type Filter struct {
	PolicyName string
	Status     domain.ExecutionStatus
	From       *time.Time
	To         *time.Time
	Limit      int
}

const defaultLimit = 100

// List returns audit records matching the filter, newest first.
func (r *Repo) List(ctx context.Context, f Filter) ([]domain.AuditRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	q := builder.Select(columns...).
		From(table).
		OrderBy("executed_at DESC").
		Limit(uint64(limit))
	if f.PolicyName != "" {
		q = q.Where(squirrel.Eq{"policy_name": f.PolicyName})
	}
	if f.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(f.Status)})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"executed_at": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.Lt{"executed_at": *f.To})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list audit_records: %w", err)
	}

	var rows []auditRow
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list audit_records: %w", err)
	}

	records := make([]domain.AuditRecord, len(rows))
	for i, row := range rows {
		records[i] = row.toDomain()
	}
	return records, nil
}

// GetByID returns a single audit record.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.AuditRecord, error) {
	sql, args, err := builder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.AuditRecord{}, fmt.Errorf("build get audit_record: %w", err)
	}

	var row auditRow
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row, sql, args...); err != nil {
		return domain.AuditRecord{}, postgres.MapError(err, "audit_record", id.String())
	}
	return row.toDomain(), nil
}

// ---------------------------------------------------------------------------
// Mapping helpers
// ---------------------------------------------------------------------------

// auditRow mirrors the deletion_audit_logs table.
type auditRow struct {
	ID             uuid.UUID  `db:"id"`
	PolicyName     string     `db:"policy_name"`
	TableName      string     `db:"table_name"`
	RecordCount    int64      `db:"record_count"`
	FilterCriteria string     `db:"filter_criteria"`
	ExecutedAt     time.Time  `db:"executed_at"`
	CompletedAt    *time.Time `db:"completed_at"`
	Status         string     `db:"status"`
	ErrorMessage   *string    `db:"error_message"`
	DeletedBy      string     `db:"deleted_by"`
	DryRun         bool       `db:"dry_run"`
}

func (r auditRow) toDomain() domain.AuditRecord {
	return domain.AuditRecord{
		ID:             r.ID,
		PolicyName:     r.PolicyName,
		TableName:      r.TableName,
		RecordCount:    r.RecordCount,
		FilterCriteria: r.FilterCriteria,
		ExecutedAt:     r.ExecutedAt,
		CompletedAt:    r.CompletedAt,
		Status:         domain.ExecutionStatus(r.Status),
		ErrorMessage:   r.ErrorMessage,
		DeletedBy:      r.DeletedBy,
		DryRun:         r.DryRun,
	}
}

func columnList() string {
	list := columns[0]
	for _, c := range columns[1:] {
		list += ", " + c
	}
	return list
}
