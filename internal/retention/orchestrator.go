package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/retentiond/internal/domain"
	"github.com/heartmarshall/retentiond/pkg/ctxutil"
)

// Orchestrator iterates the enabled policies in lexical order, isolates
// per-policy failures and aggregates a batch summary. It is the single
// entry point the scheduling layer invokes.
type Orchestrator struct {
	policies PolicySource
	engine   *Engine
	handler  *Handler
	audit    AuditLog
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator creates a batch orchestrator.
func NewOrchestrator(policies PolicySource, engine *Engine, handler *Handler, audit AuditLog, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		policies: policies,
		engine:   engine,
		handler:  handler,
		audit:    audit,
		logger:   logger.With(slog.String("component", "retention.orchestrator")),
		now:      time.Now,
	}
}

// Run executes the retention job for all enabled policies and returns the
// batch summary. A single bad policy never blocks the rest of the batch;
// only an unreachable audit store aborts the run, because deletions must
// never proceed without a working audit trail.
func (o *Orchestrator) Run(ctx context.Context, dryRun bool) (domain.RunSummary, error) {
	ctx = ctxutil.WithRunID(ctx, uuid.New())
	logger := o.logger.With(slog.String("run_id", ctxutil.RunIDFromCtx(ctx).String()))

	summary := domain.RunSummary{StartedAt: o.now().UTC(), DryRun: dryRun}

	policies, err := o.policies.ListEnabled(ctx)
	if err != nil {
		summary.FinishedAt = o.now().UTC()
		return summary, fmt.Errorf("list enabled policies: %w", err)
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].PolicyName < policies[j].PolicyName })

	logger.Info("retention job started",
		slog.Bool("dry_run", dryRun),
		slog.Int("policies", len(policies)),
	)

	for _, policy := range policies {
		result, err := o.runPolicy(ctx, logger, policy, dryRun)
		if err != nil && errors.Is(err, domain.ErrAuditUnavailable) {
			summary.Add(result)
			summary.FinishedAt = o.now().UTC()
			return summary, fmt.Errorf("policy %q: %w", policy.PolicyName, err)
		}
		summary.Add(result)
	}

	summary.FinishedAt = o.now().UTC()
	logger.Info("retention job finished",
		slog.Int("completed", summary.Completed),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Int64("total_deleted", summary.TotalDeleted),
	)
	return summary, nil
}

// runPolicy validates and executes one policy, converting every non-fatal
// error into a PolicyResult. The returned error is non-nil only for audit
// store failures, which the caller escalates.
func (o *Orchestrator) runPolicy(ctx context.Context, logger *slog.Logger, policy domain.RetentionPolicy, dryRun bool) (domain.PolicyResult, error) {
	logger = logger.With(slog.String("policy", policy.PolicyName))

	if err := o.engine.Validate(ctx, policy); err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			// Schema introspection failed; infrastructure, not policy shape.
			logger.Error("policy validation errored", slog.String("error", err.Error()))
			return domain.PolicyResult{PolicyName: policy.PolicyName, Outcome: domain.OutcomeFailed, Error: err.Error()}, nil
		}
		logger.Warn("policy rejected by validation", slog.String("error", verr.Error()))
		if aerr := o.recordRejected(ctx, policy, dryRun, verr); aerr != nil {
			return domain.PolicyResult{PolicyName: policy.PolicyName, Outcome: domain.OutcomeSkipped, Error: verr.Error()}, aerr
		}
		return domain.PolicyResult{PolicyName: policy.PolicyName, Outcome: domain.OutcomeSkipped, Error: verr.Error()}, nil
	}

	cutoff := o.engine.Cutoff(policy, o.now())
	pred, err := o.engine.BuildPredicate(policy, cutoff)
	if err != nil {
		logger.Warn("policy predicate rejected", slog.String("error", err.Error()))
		if aerr := o.recordRejected(ctx, policy, dryRun, err); aerr != nil {
			return domain.PolicyResult{PolicyName: policy.PolicyName, Outcome: domain.OutcomeSkipped, Error: err.Error()}, aerr
		}
		return domain.PolicyResult{PolicyName: policy.PolicyName, Outcome: domain.OutcomeSkipped, Error: err.Error()}, nil
	}

	logger.Info("executing policy",
		slog.Int("retention_days", policy.RetentionDays),
		slog.Time("cutoff", cutoff),
		slog.Bool("dry_run", dryRun),
	)

	result, err := o.handler.Execute(ctx, policy, pred, dryRun)
	if err != nil {
		if errors.Is(err, domain.ErrAuditUnavailable) {
			return domain.PolicyResult{PolicyName: policy.PolicyName, Outcome: domain.OutcomeFailed, Error: err.Error()}, err
		}
		if errors.Is(err, domain.ErrLockContention) {
			logger.Warn("policy locked by concurrent run, skipping")
			return domain.PolicyResult{PolicyName: policy.PolicyName, Outcome: domain.OutcomeSkipped, Error: err.Error()}, nil
		}
		logger.Error("policy execution failed", slog.String("error", err.Error()))
		return domain.PolicyResult{PolicyName: policy.PolicyName, Outcome: domain.OutcomeFailed, Error: err.Error()}, nil
	}

	return domain.PolicyResult{
		PolicyName:  policy.PolicyName,
		Outcome:     domain.OutcomeCompleted,
		RecordCount: result.RecordCount,
		Warning:     result.Warning,
	}, nil
}

// recordRejected writes the failed audit record for a policy that never
// reached the handler, so every execution attempt is auditable. An audit
// store failure here is fatal for the batch.
func (o *Orchestrator) recordRejected(ctx context.Context, policy domain.RetentionPolicy, dryRun bool, cause error) error {
	rec, err := o.audit.Create(ctx, domain.NewPendingRecord(policy, "", dryRun, o.now()))
	if err != nil {
		return fmt.Errorf("create audit record for %q: %w: %w", policy.PolicyName, domain.ErrAuditUnavailable, err)
	}
	msg := cause.Error()
	now := o.now().UTC()
	if err := o.audit.Transition(ctx, rec.ID, domain.StatusFailed, domain.AuditUpdate{
		ErrorMessage: &msg,
		CompletedAt:  &now,
	}); err != nil {
		return fmt.Errorf("transition audit record %s: %w: %w", rec.ID, domain.ErrAuditUnavailable, err)
	}
	return nil
}
