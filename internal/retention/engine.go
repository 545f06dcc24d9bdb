package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/heartmarshall/retentiond/internal/domain"
)

// Engine validates policies, computes cutoff dates, builds safe filter
// predicates and counts matching rows. It never mutates data.
type Engine struct {
	inspector SchemaInspector
	targets   TargetStore
}

// NewEngine creates a retention engine.
func NewEngine(inspector SchemaInspector, targets TargetStore) *Engine {
	return &Engine{inspector: inspector, targets: targets}
}

// Validate checks a policy against structural rules and the live target
// schema. It collects every violation into a single *domain.ValidationError
// rather than failing on the first one. A non-validation error is returned
// only when schema introspection itself fails.
func (e *Engine) Validate(ctx context.Context, p domain.RetentionPolicy) error {
	var violations []domain.FieldError

	if p.PolicyName == "" {
		violations = append(violations, domain.FieldError{Field: "policy_name", Message: "is required"})
	}

	tableOK := false
	switch {
	case p.TableName == "":
		violations = append(violations, domain.FieldError{Field: "table_name", Message: "is required"})
	case !domain.IsSafeIdentifier(p.TableName):
		violations = append(violations, domain.FieldError{Field: "table_name", Message: fmt.Sprintf("%q is not a valid identifier", p.TableName)})
	default:
		exists, err := e.inspector.TableExists(ctx, p.TableName)
		if err != nil {
			return fmt.Errorf("inspect table %q: %w", p.TableName, err)
		}
		if !exists {
			violations = append(violations, domain.FieldError{Field: "table_name", Message: fmt.Sprintf("table %q does not exist", p.TableName)})
		}
		tableOK = exists
	}

	switch {
	case p.DateColumn == "":
		violations = append(violations, domain.FieldError{Field: "date_column", Message: "is required"})
	case !domain.IsSafeIdentifier(p.DateColumn):
		violations = append(violations, domain.FieldError{Field: "date_column", Message: fmt.Sprintf("%q is not a valid identifier", p.DateColumn)})
	case tableOK:
		exists, err := e.inspector.ColumnExists(ctx, p.TableName, p.DateColumn)
		if err != nil {
			return fmt.Errorf("inspect column %q.%q: %w", p.TableName, p.DateColumn, err)
		}
		if !exists {
			violations = append(violations, domain.FieldError{Field: "date_column", Message: fmt.Sprintf("column %q does not exist in table %q", p.DateColumn, p.TableName)})
		}
	}

	if p.RetentionDays < 0 {
		violations = append(violations, domain.FieldError{Field: "retention_days", Message: fmt.Sprintf("must be non-negative, got %d", p.RetentionDays)})
	}

	// Filter condition columns must also exist; operator and value shape are
	// checked by BuildPredicate.
	if tableOK {
		for _, cond := range p.FilterConditions {
			if !domain.IsSafeIdentifier(cond.Column) {
				violations = append(violations, domain.FieldError{Field: "filter_conditions", Message: fmt.Sprintf("%q is not a valid identifier", cond.Column)})
				continue
			}
			exists, err := e.inspector.ColumnExists(ctx, p.TableName, cond.Column)
			if err != nil {
				return fmt.Errorf("inspect column %q.%q: %w", p.TableName, cond.Column, err)
			}
			if !exists {
				violations = append(violations, domain.FieldError{Field: "filter_conditions", Message: fmt.Sprintf("column %q does not exist in table %q", cond.Column, p.TableName)})
			}
		}
	}

	if len(violations) > 0 {
		return domain.NewValidationErrors(violations)
	}
	return nil
}

// Cutoff computes the deletion boundary for the policy: now minus the
// retention period, in UTC. Pure and deterministic given now.
func (e *Engine) Cutoff(p domain.RetentionPolicy, now time.Time) time.Time {
	return p.Cutoff(now)
}

// BuildPredicate builds the structured deletion predicate for the policy:
// date_column < cutoff, AND-combined with the policy's filter conditions.
// Every column and operator is checked against the allow-list; anything
// else fails with domain.ErrPredicate. This is the only place predicates
// are assembled, so no string-built filter can reach a query.
func (e *Engine) BuildPredicate(p domain.RetentionPolicy, cutoff time.Time) (domain.Predicate, error) {
	if !domain.IsSafeIdentifier(p.DateColumn) {
		return domain.Predicate{}, fmt.Errorf("column %q: %w", p.DateColumn, domain.ErrPredicate)
	}

	conditions := make([]domain.Condition, 0, len(p.FilterConditions)+1)
	conditions = append(conditions, domain.Condition{
		Column: p.DateColumn,
		Op:     domain.OpLt,
		Value:  cutoff,
	})

	for _, cond := range p.FilterConditions {
		if err := checkCondition(cond); err != nil {
			return domain.Predicate{}, err
		}
		conditions = append(conditions, cond)
	}

	return domain.Predicate{Conditions: conditions}, nil
}

// checkCondition enforces the allow-list on a single filter condition.
func checkCondition(c domain.Condition) error {
	if !domain.IsSafeIdentifier(c.Column) {
		return fmt.Errorf("column %q: %w", c.Column, domain.ErrPredicate)
	}
	if !c.Op.IsValid() {
		return fmt.Errorf("operator %q on column %q: %w", c.Op, c.Column, domain.ErrPredicate)
	}
	if c.Op.IsUnary() {
		if c.Value != nil {
			return fmt.Errorf("operator %s on column %q takes no value: %w", c.Op, c.Column, domain.ErrPredicate)
		}
		return nil
	}
	if c.Value == nil {
		return fmt.Errorf("operator %s on column %q requires a value: %w", c.Op, c.Column, domain.ErrPredicate)
	}
	if c.Op == domain.OpIn || c.Op == domain.OpNotIn {
		items, ok := c.Value.([]any)
		if !ok || len(items) == 0 {
			return fmt.Errorf("operator %s on column %q requires a non-empty list: %w", c.Op, c.Column, domain.ErrPredicate)
		}
	}
	return nil
}

// CountMatching returns the number of rows currently matching the predicate.
// Read-only: it must not mutate data.
func (e *Engine) CountMatching(ctx context.Context, p domain.RetentionPolicy, pred domain.Predicate) (int64, error) {
	return e.targets.CountMatching(ctx, p.TableName, pred)
}
