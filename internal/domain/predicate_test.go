package domain

import (
	"testing"
	"time"
)

func TestParseOperator(t *testing.T) {
	cases := []struct {
		in     string
		want   Operator
		wantOK bool
	}{
		{"=", OpEq, true},
		{"!=", OpNotEq, true},
		{"<", OpLt, true},
		{">=", OpGtOrEq, true},
		{"in", OpIn, true},
		{"IN", OpIn, true},
		{"not_in", OpNotIn, true},
		{"NOT IN", OpNotIn, true},
		{"is_null", OpIsNull, true},
		{" is not null ", OpIsNotNull, true},
		{"like", "", false},
		{"==", "", false},
		{"", "", false},
		{"; DROP", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseOperator(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ParseOperator(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestOperatorIsUnary(t *testing.T) {
	for _, op := range []Operator{OpIsNull, OpIsNotNull} {
		if !op.IsUnary() {
			t.Errorf("%s should be unary", op)
		}
	}
	for _, op := range []Operator{OpEq, OpIn, OpLt} {
		if op.IsUnary() {
			t.Errorf("%s should not be unary", op)
		}
	}
}

func TestPredicateString(t *testing.T) {
	cutoff := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		pred Predicate
		want string
	}{
		{
			name: "empty",
			pred: Predicate{},
			want: "TRUE",
		},
		{
			name: "cutoff only",
			pred: Predicate{Conditions: []Condition{
				{Column: "created_at", Op: OpLt, Value: cutoff},
			}},
			want: "created_at < '2025-05-02T10:00:00Z'",
		},
		{
			name: "combined filters",
			pred: Predicate{Conditions: []Condition{
				{Column: "created_at", Op: OpLt, Value: cutoff},
				{Column: "status", Op: OpEq, Value: "expired"},
				{Column: "deleted_at", Op: OpIsNull},
			}},
			want: "created_at < '2025-05-02T10:00:00Z' AND status = 'expired' AND deleted_at IS NULL",
		},
		{
			name: "in list",
			pred: Predicate{Conditions: []Condition{
				{Column: "kind", Op: OpIn, Value: []any{"a", "b"}},
			}},
			want: "kind IN ('a', 'b')",
		},
		{
			name: "numeric value",
			pred: Predicate{Conditions: []Condition{
				{Column: "attempts", Op: OpGtOrEq, Value: 3},
			}},
			want: "attempts >= 3",
		},
		{
			name: "quote escaping",
			pred: Predicate{Conditions: []Condition{
				{Column: "note", Op: OpEq, Value: "it's"},
			}},
			want: "note = 'it''s'",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.pred.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

// The snapshot must be stable so an execution can be reproduced from its
// audit record.
func TestPredicateStringDeterministic(t *testing.T) {
	pred := Predicate{Conditions: []Condition{
		{Column: "created_at", Op: OpLt, Value: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)},
		{Column: "status", Op: OpEq, Value: "expired"},
	}}
	first := pred.String()
	for i := 0; i < 10; i++ {
		if got := pred.String(); got != first {
			t.Fatalf("rendering changed between calls: %q vs %q", first, got)
		}
	}
}
