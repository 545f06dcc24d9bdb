// Package policystore implements the retention policy repository using
// PostgreSQL. Policies are written by configuration sync and read-only to
// the retention engine.
package policystore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/heartmarshall/retentiond/internal/adapter/postgres"
	"github.com/heartmarshall/retentiond/internal/domain"
)

const table = "retention_policies"

var columns = []string{
	"policy_name", "table_name", "retention_days", "date_column",
	"filter_conditions", "enabled", "created_at", "updated_at",
}

var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo provides retention policy persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new policy repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ListEnabled returns all enabled policies ordered by policy_name, the
// deterministic order batch runs iterate in.
func (r *Repo) ListEnabled(ctx context.Context) ([]domain.RetentionPolicy, error) {
	sql, args, err := builder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"enabled": true}).
		OrderBy("policy_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list enabled policies: %w", err)
	}

	var rows []policyRow
	if err := pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list enabled policies: %w", err)
	}

	policies := make([]domain.RetentionPolicy, len(rows))
	for i, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		policies[i] = p
	}
	return policies, nil
}

// GetByName returns a single policy.
func (r *Repo) GetByName(ctx context.Context, name string) (domain.RetentionPolicy, error) {
	sql, args, err := builder.Select(columns...).
		From(table).
		Where(squirrel.Eq{"policy_name": name}).
		ToSql()
	if err != nil {
		return domain.RetentionPolicy{}, fmt.Errorf("build get policy: %w", err)
	}

	var row policyRow
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &row, sql, args...); err != nil {
		return domain.RetentionPolicy{}, postgres.MapError(err, "retention_policy", name)
	}
	return row.toDomain()
}

// Upsert inserts the policy or updates it in place, keyed by policy_name.
// Used by configuration sync at startup.
func (r *Repo) Upsert(ctx context.Context, p domain.RetentionPolicy) error {
	conditionsJSON, err := json.Marshal(p.FilterConditions)
	if err != nil {
		return fmt.Errorf("retention_policy %s: marshal filter_conditions: %w", p.PolicyName, err)
	}

	sql, args, err := builder.Insert(table).
		Columns("policy_name", "table_name", "retention_days", "date_column", "filter_conditions", "enabled").
		Values(p.PolicyName, p.TableName, p.RetentionDays, p.DateColumn, conditionsJSON, p.Enabled).
		Suffix(`ON CONFLICT (policy_name) DO UPDATE SET
			table_name = EXCLUDED.table_name,
			retention_days = EXCLUDED.retention_days,
			date_column = EXCLUDED.date_column,
			filter_conditions = EXCLUDED.filter_conditions,
			enabled = EXCLUDED.enabled,
			updated_at = now()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert policy: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(err, "retention_policy", p.PolicyName)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mapping helpers
// ---------------------------------------------------------------------------

// policyRow mirrors the retention_policies table.
type policyRow struct {
	PolicyName       string    `db:"policy_name"`
	TableName        string    `db:"table_name"`
	RetentionDays    int       `db:"retention_days"`
	DateColumn       string    `db:"date_column"`
	FilterConditions []byte    `db:"filter_conditions"`
	Enabled          bool      `db:"enabled"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r policyRow) toDomain() (domain.RetentionPolicy, error) {
	p := domain.RetentionPolicy{
		PolicyName:    r.PolicyName,
		TableName:     r.TableName,
		RetentionDays: r.RetentionDays,
		DateColumn:    r.DateColumn,
		Enabled:       r.Enabled,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}

	if len(r.FilterConditions) > 0 {
		if err := json.Unmarshal(r.FilterConditions, &p.FilterConditions); err != nil {
			return domain.RetentionPolicy{}, fmt.Errorf("retention_policy %s: unmarshal filter_conditions: %w", r.PolicyName, err)
		}
	}
	return p, nil
}
