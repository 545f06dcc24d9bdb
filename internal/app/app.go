package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/retentiond/internal/adapter/postgres"
	"github.com/heartmarshall/retentiond/internal/adapter/postgres/auditlog"
	"github.com/heartmarshall/retentiond/internal/adapter/postgres/policystore"
	"github.com/heartmarshall/retentiond/internal/adapter/postgres/target"
	"github.com/heartmarshall/retentiond/internal/config"
	"github.com/heartmarshall/retentiond/internal/retention"
)

// App bundles the wired retention components. Both entry points (the cron
// daemon and the one-shot command) build the same graph through New.
type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Orchestrator *retention.Orchestrator

	pool *pgxpool.Pool
}

// New loads configuration, connects to the database, syncs the policy file
// into the retention_policies table, and wires the retention components.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting retentiond",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	policyRepo := policystore.New(pool)

	if err := syncPolicies(ctx, cfg, logger, policyRepo); err != nil {
		pool.Close()
		return nil, err
	}

	auditRepo := auditlog.New(pool)
	targetRepo := target.New(pool)
	locker := target.NewAdvisoryLocker(pool, logger)
	txManager := postgres.NewTxManager(pool)

	engine := retention.NewEngine(targetRepo, targetRepo)
	handler := retention.NewHandler(auditRepo, targetRepo, locker, txManager, cfg.Retention.PolicyTimeout, logger)
	orchestrator := retention.NewOrchestrator(policyRepo, engine, handler, auditRepo, logger)

	return &App{
		Config:       cfg,
		Logger:       logger,
		Orchestrator: orchestrator,
		pool:         pool,
	}, nil
}

// RunDaemon starts the cron scheduler and blocks until ctx is cancelled.
func (a *App) RunDaemon(ctx context.Context) error {
	scheduler := retention.NewScheduler(a.Orchestrator, a.Config.Retention.Schedule, a.Config.Retention.DryRun, a.Logger)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	scheduler.Stop()
	return nil
}

// Close releases the database pool.
func (a *App) Close() {
	a.pool.Close()
}

// syncPolicies upserts the policy file contents into retention_policies.
// The file is the source of truth; the table is what runs read.
func syncPolicies(ctx context.Context, cfg *config.Config, logger *slog.Logger, repo *policystore.Repo) error {
	policies, err := config.LoadPolicies(cfg.Retention.PoliciesFile)
	if err != nil {
		return err
	}
	if len(policies) == 0 {
		logger.Warn("no retention policies loaded",
			slog.String("policies_file", cfg.Retention.PoliciesFile),
		)
		return nil
	}

	for _, p := range policies {
		if err := repo.Upsert(ctx, p); err != nil {
			return fmt.Errorf("sync policy %q: %w", p.PolicyName, err)
		}
	}

	logger.Info("retention policies synced",
		slog.Int("count", len(policies)),
		slog.String("policies_file", cfg.Retention.PoliciesFile),
	)
	return nil
}
