// Package target runs retention queries against policy target tables.
// Unlike the other repositories it takes table names at runtime, so every
// identifier passes the allow-list before being placed in a statement, and
// values always travel as bind parameters.
package target

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/heartmarshall/retentiond/internal/adapter/postgres"
	"github.com/heartmarshall/retentiond/internal/domain"
)

var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Repo provides count and delete operations on target tables plus schema
// introspection for policy validation.
type Repo struct {
	db postgres.Querier
}

// New creates a new target table repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// CountMatching returns the number of rows matching the predicate.
// Read-only. Joins a transaction carried in ctx, if any.
func (r *Repo) CountMatching(ctx context.Context, table string, pred domain.Predicate) (int64, error) {
	if !domain.IsSafeIdentifier(table) {
		return 0, fmt.Errorf("table %q: %w", table, domain.ErrPredicate)
	}
	where, err := toSqlizer(pred)
	if err != nil {
		return 0, err
	}

	sql, args, err := builder.
		Select("count(*)").
		From(table).
		Where(where).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count on %s: %w", table, err)
	}

	var count int64
	if err := pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &count, sql, args...); err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table, err)
	}
	return count, nil
}

// DeleteMatching deletes rows matching the predicate and returns the exact
// affected-row count. Joins a transaction carried in ctx, if any.
func (r *Repo) DeleteMatching(ctx context.Context, table string, pred domain.Predicate) (int64, error) {
	if !domain.IsSafeIdentifier(table) {
		return 0, fmt.Errorf("table %q: %w", table, domain.ErrPredicate)
	}
	where, err := toSqlizer(pred)
	if err != nil {
		return 0, err
	}

	sql, args, err := builder.
		Delete(table).
		Where(where).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete on %s: %w", table, err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete rows in %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// ---------------------------------------------------------------------------
// Schema introspection
// ---------------------------------------------------------------------------

const tableExistsSQL = `
	SELECT EXISTS (
		SELECT 1 FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	)`

const columnExistsSQL = `
	SELECT EXISTS (
		SELECT 1 FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1 AND column_name = $2
	)`

// TableExists reports whether the table exists in the public schema.
func (r *Repo) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := postgres.QuerierFromCtx(ctx, r.db).
		QueryRow(ctx, tableExistsSQL, table).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return exists, nil
}

// ColumnExists reports whether the column exists on the table.
func (r *Repo) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	var exists bool
	err := postgres.QuerierFromCtx(ctx, r.db).
		QueryRow(ctx, columnExistsSQL, table, column).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check column %s.%s: %w", table, column, err)
	}
	return exists, nil
}
