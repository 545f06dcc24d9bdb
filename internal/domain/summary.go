package domain

import "time"

// PolicyOutcome classifies how a single policy fared within a batch run.
type PolicyOutcome string

const (
	// OutcomeCompleted means the policy executed and reached a completed
	// audit record (including dry runs).
	OutcomeCompleted PolicyOutcome = "completed"
	// OutcomeFailed means execution was attempted but failed; the audit
	// record is failed and the batch continued.
	OutcomeFailed PolicyOutcome = "failed"
	// OutcomeSkipped means the policy never reached the deletion handler:
	// validation failure, disallowed predicate, or lock contention.
	OutcomeSkipped PolicyOutcome = "skipped"
)

// PolicyResult is the per-policy entry of a batch summary.
type PolicyResult struct {
	PolicyName  string
	Outcome     PolicyOutcome
	RecordCount int64
	Error       string
	// Warning carries non-fatal notes, e.g. a count-vs-delete discrepancy
	// caused by concurrent writers.
	Warning string
}

// RunSummary aggregates the outcome of one batch run across all policies.
type RunSummary struct {
	StartedAt    time.Time
	FinishedAt   time.Time
	DryRun       bool
	Completed    int
	Failed       int
	Skipped      int
	TotalDeleted int64
	Results      []PolicyResult
}

// Add appends a per-policy result and updates the aggregate counters.
func (s *RunSummary) Add(r PolicyResult) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case OutcomeCompleted:
		s.Completed++
		s.TotalDeleted += r.RecordCount
	case OutcomeFailed:
		s.Failed++
	case OutcomeSkipped:
		s.Skipped++
	}
}
