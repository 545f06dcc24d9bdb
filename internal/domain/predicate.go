package domain

import (
	"fmt"
	"strings"
	"time"
)

// Operator is the comparison operator of a single predicate condition.
// Only the operators listed below are ever rendered into SQL.
type Operator string

const (
	OpEq        Operator = "="
	OpNotEq     Operator = "!="
	OpLt        Operator = "<"
	OpLtOrEq    Operator = "<="
	OpGt        Operator = ">"
	OpGtOrEq    Operator = ">="
	OpIn        Operator = "IN"
	OpNotIn     Operator = "NOT IN"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
)

func (o Operator) String() string { return string(o) }

func (o Operator) IsValid() bool {
	switch o {
	case OpEq, OpNotEq, OpLt, OpLtOrEq, OpGt, OpGtOrEq,
		OpIn, OpNotIn, OpIsNull, OpIsNotNull:
		return true
	}
	return false
}

// IsUnary reports whether the operator takes no right-hand value.
func (o Operator) IsUnary() bool {
	return o == OpIsNull || o == OpIsNotNull
}

// ParseOperator converts a configuration string (case-insensitive, with
// underscores accepted in place of spaces) into an Operator.
func ParseOperator(s string) (Operator, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "_", " "))
	op := Operator(normalized)
	if op.IsValid() {
		return op, true
	}
	return "", false
}

// Condition is one allow-listed comparison: column <op> value.
// Value is nil for unary operators and a slice for IN / NOT IN.
type Condition struct {
	Column string   `json:"column"`
	Op     Operator `json:"op"`
	Value  any      `json:"value,omitempty"`
}

// Predicate is a structured, allow-listed boolean expression: the AND of its
// conditions. It is never built from raw SQL text.
type Predicate struct {
	Conditions []Condition
}

// String renders the predicate into a human-readable snapshot for the
// filter_criteria audit column. The rendering is stable for a given
// predicate so an execution can be reproduced from its audit record.
func (p Predicate) String() string {
	if len(p.Conditions) == 0 {
		return "TRUE"
	}
	parts := make([]string, len(p.Conditions))
	for i, c := range p.Conditions {
		if c.Op.IsUnary() {
			parts[i] = fmt.Sprintf("%s %s", c.Column, c.Op)
			continue
		}
		parts[i] = fmt.Sprintf("%s %s %s", c.Column, c.Op, renderValue(c.Value))
	}
	return strings.Join(parts, " AND ")
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case time.Time:
		return "'" + val.UTC().Format(time.RFC3339) + "'"
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = renderValue(item)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	default:
		return fmt.Sprintf("%v", val)
	}
}
