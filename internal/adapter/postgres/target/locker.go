package target

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/retentiond/internal/domain"
)

// AdvisoryLocker serializes executions of the same policy across processes
// using PostgreSQL session-level advisory locks. The lock lives on a pinned
// pool connection so acquire and release happen in the same session, and it
// is held until the execution's audit record is terminal.
type AdvisoryLocker struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAdvisoryLocker creates an advisory locker on the given pool.
func NewAdvisoryLocker(pool *pgxpool.Pool, logger *slog.Logger) *AdvisoryLocker {
	return &AdvisoryLocker{
		pool:   pool,
		logger: logger.With(slog.String("component", "target.locker")),
	}
}

// Acquire takes the advisory lock for the policy. If the lock is already
// held by a concurrent run it fails fast with domain.ErrLockContention.
// The returned release func unlocks and returns the connection to the pool;
// it must be called exactly once.
func (l *AdvisoryLocker) Acquire(ctx context.Context, policyName string) (func(context.Context), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection for policy lock %q: %w", policyName, err)
	}

	key := lockKey(policyName)

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock for %q: %w", policyName, err)
	}
	if !locked {
		conn.Release()
		return nil, fmt.Errorf("policy %q: %w", policyName, domain.ErrLockContention)
	}

	release := func(ctx context.Context) {
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", key); err != nil {
			// The session unlock failed; releasing the connection closes the
			// session eventually, which drops the lock anyway.
			l.logger.Warn("advisory unlock failed",
				slog.String("policy", policyName),
				slog.String("error", err.Error()),
			)
		}
		conn.Release()
	}
	return release, nil
}

// lockKey maps a policy name onto the int64 advisory lock keyspace.
func lockKey(policyName string) int64 {
	h := fnv.New64a()
	h.Write([]byte(policyName))
	return int64(h.Sum64())
}
