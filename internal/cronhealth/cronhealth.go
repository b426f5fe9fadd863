// Package cronhealth records an audit row for each cron-triggered run so
// silent scheduler failures are visible after the fact.
package cronhealth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cron run types.
const (
	TypeReplenish = "replenish-queue"
	TypeSend      = "notification-send"
)

// Counts summarizes what a cron run touched.
type Counts struct {
	Found  int
	Sent   int
	Failed int
}

// Monitor tracks one cron run from start to completion or failure.
// Nil-safe: a nil Monitor is a no-op, for callers without a database.
type Monitor struct {
	pool      *pgxpool.Pool
	logger    *slog.Logger
	checkID   string
	startedAt time.Time
}

// NewMonitor creates a Monitor. Returns nil when pool is nil.
func NewMonitor(pool *pgxpool.Pool, logger *slog.Logger) *Monitor {
	if pool == nil {
		return nil
	}
	return &Monitor{pool: pool, logger: logger}
}

// Start opens an audit row for a cron run. Audit failures are logged and
// swallowed; health bookkeeping must never break the job itself.
func (m *Monitor) Start(ctx context.Context, cronType string) {
	if m == nil {
		return
	}
	m.checkID = uuid.NewString()
	m.startedAt = time.Now()

	_, err := m.pool.Exec(ctx, `
		INSERT INTO cron_health_checks (id, cron_type, status, started_at)
		VALUES ($1, $2, 'started', $3)`,
		m.checkID, cronType, m.startedAt)
	if err != nil {
		m.logger.Warn("Cron health check start failed", "error", err)
		m.checkID = ""
	}
}

// Complete closes the audit row as successful with run counts.
func (m *Monitor) Complete(ctx context.Context, counts Counts) {
	if m == nil || m.checkID == "" {
		return
	}
	duration := time.Since(m.startedAt)

	_, err := m.pool.Exec(ctx, `
		UPDATE cron_health_checks
		SET status = 'completed', completed_at = NOW(), duration_ms = $2,
			found = $3, sent = $4, failed = $5
		WHERE id = $1`,
		m.checkID, duration.Milliseconds(), counts.Found, counts.Sent, counts.Failed)
	if err != nil {
		m.logger.Warn("Cron health check completion failed", "error", err)
	}
	m.checkID = ""
}

// Fail closes the audit row as failed with the error message.
func (m *Monitor) Fail(ctx context.Context, runErr error) {
	if m == nil || m.checkID == "" {
		return
	}
	duration := time.Since(m.startedAt)

	_, err := m.pool.Exec(ctx, `
		UPDATE cron_health_checks
		SET status = 'failed', completed_at = NOW(), duration_ms = $2,
			error_message = $3
		WHERE id = $1`,
		m.checkID, duration.Milliseconds(), runErr.Error())
	if err != nil {
		m.logger.Warn("Cron health check failure record failed", "error", err)
	}
	m.checkID = ""
}

// PurgeBefore removes audit rows older than the cutoff. Maintenance.
func PurgeBefore(ctx context.Context, pool *pgxpool.Pool, cutoff time.Time) (int64, error) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM cron_health_checks WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
