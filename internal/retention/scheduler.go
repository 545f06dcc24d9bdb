package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/heartmarshall/retentiond/internal/domain"
)

// JobRunner executes one retention batch. Satisfied by Orchestrator.
type JobRunner interface {
	Run(ctx context.Context, dryRun bool) (domain.RunSummary, error)
}

// Scheduler triggers retention runs on a cron schedule. It is the only
// scheduling surface the core exposes; everything else is invoked through
// JobRunner.
type Scheduler struct {
	job      JobRunner
	schedule string
	dryRun   bool
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewScheduler creates a scheduler that runs the job with the given cron
// expression (standard 5-field syntax, e.g. "0 3 * * *" for daily at 3 AM).
func NewScheduler(job JobRunner, schedule string, dryRun bool, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		job:      job,
		schedule: schedule,
		dryRun:   dryRun,
		cron:     cron.New(),
		logger:   logger.With(slog.String("component", "retention.scheduler")),
	}
}

// Start validates the cron expression and begins scheduling. An empty
// schedule disables the scheduler. Cancelling ctx stops it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("schedule not configured, scheduler disabled")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.runJob(ctx)
	}); err != nil {
		return fmt.Errorf("schedule retention job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		slog.String("schedule", s.schedule),
		slog.Bool("dry_run", s.dryRun),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runJob executes one scheduled batch.
func (s *Scheduler) runJob(ctx context.Context) {
	summary, err := s.job.Run(ctx, s.dryRun)
	if err != nil {
		s.logger.Error("scheduled retention run failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("scheduled retention run finished",
		slog.Int("completed", summary.Completed),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Int64("total_deleted", summary.TotalDeleted),
	)
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run time, or nil when not scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
