package target

import (
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/heartmarshall/retentiond/internal/domain"
)

// toSqlizer compiles a structured predicate into a squirrel expression.
// Every column name is re-checked against the identifier allow-list here,
// at the last point before SQL generation, so no unvetted text can reach a
// query even if a caller bypasses the engine.
func toSqlizer(pred domain.Predicate) (squirrel.Sqlizer, error) {
	if len(pred.Conditions) == 0 {
		return nil, fmt.Errorf("empty predicate: %w", domain.ErrPredicate)
	}

	and := make(squirrel.And, 0, len(pred.Conditions))
	for _, c := range pred.Conditions {
		expr, err := conditionToSqlizer(c)
		if err != nil {
			return nil, err
		}
		and = append(and, expr)
	}
	return and, nil
}

func conditionToSqlizer(c domain.Condition) (squirrel.Sqlizer, error) {
	if !domain.IsSafeIdentifier(c.Column) {
		return nil, fmt.Errorf("column %q: %w", c.Column, domain.ErrPredicate)
	}

	switch c.Op {
	case domain.OpEq, domain.OpIn:
		return squirrel.Eq{c.Column: c.Value}, nil
	case domain.OpNotEq, domain.OpNotIn:
		return squirrel.NotEq{c.Column: c.Value}, nil
	case domain.OpLt:
		return squirrel.Lt{c.Column: c.Value}, nil
	case domain.OpLtOrEq:
		return squirrel.LtOrEq{c.Column: c.Value}, nil
	case domain.OpGt:
		return squirrel.Gt{c.Column: c.Value}, nil
	case domain.OpGtOrEq:
		return squirrel.GtOrEq{c.Column: c.Value}, nil
	case domain.OpIsNull:
		return squirrel.Eq{c.Column: nil}, nil
	case domain.OpIsNotNull:
		return squirrel.NotEq{c.Column: nil}, nil
	default:
		return nil, fmt.Errorf("operator %q: %w", c.Op, domain.ErrPredicate)
	}
}
