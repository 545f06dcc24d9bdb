package domain

import (
	"regexp"
	"time"
)

// RetentionPolicy is a named rule specifying which table, date column and age
// threshold govern deletion eligibility. Policies are created and updated by
// configuration loading; the retention engine treats them as read-only.
type RetentionPolicy struct {
	PolicyName       string
	TableName        string
	RetentionDays    int
	DateColumn       string
	FilterConditions []Condition
	Enabled          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Cutoff returns the boundary below which records are eligible for deletion:
// now - RetentionDays days, in UTC. Deterministic given now.
func (p RetentionPolicy) Cutoff(now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, -p.RetentionDays)
}

// identifierRE matches safe SQL identifiers. Anything else is rejected before
// it can reach a query.
var identifierRE = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsSafeIdentifier reports whether s may be used as a table or column name.
func IsSafeIdentifier(s string) bool {
	return identifierRE.MatchString(s)
}
