// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resetbiology/reminders/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the scheduling and
// dispatch layers use. Prepared statements eliminate parse overhead on every
// request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Protocols
		"protocol_by_id": `
			SELECT id, user_id, peptide_name, frequency, timing, notes, start_date, is_active
			FROM protocols WHERE id = $1`,
		"active_protocols": `
			SELECT id, user_id, peptide_name, frequency, timing, notes, start_date, is_active
			FROM protocols WHERE is_active = true ORDER BY created_at`,

		// Preferences
		"preference_for_protocol": `
			SELECT id, user_id, protocol_id, push_enabled, email_enabled, reminder_minutes
			FROM notification_preferences WHERE user_id = $1 AND protocol_id = $2`,
		"upsert_preference": `
			INSERT INTO notification_preferences
				(user_id, protocol_id, push_enabled, email_enabled, reminder_minutes, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (user_id, protocol_id) DO UPDATE SET
				push_enabled = EXCLUDED.push_enabled,
				email_enabled = EXCLUDED.email_enabled,
				reminder_minutes = EXCLUDED.reminder_minutes,
				updated_at = NOW()
			RETURNING id`,

		// Scheduled notifications
		"count_future_unsent": `
			SELECT COUNT(*) FROM scheduled_notifications
			WHERE protocol_id = $1 AND sent = false AND reminder_time >= $2`,
		"unsent_dose_times": `
			SELECT dose_time FROM scheduled_notifications
			WHERE user_id = $1 AND protocol_id = $2 AND sent = false`,
		"delete_unsent": `
			DELETE FROM scheduled_notifications
			WHERE user_id = $1 AND protocol_id = $2 AND sent = false`,
		"insert_notification": `
			INSERT INTO scheduled_notifications
				(id, user_id, protocol_id, dose_time, reminder_time, type, sent)
			VALUES ($1, $2, $3, $4, $5, $6, false)`,

		// Push subscriptions
		"subscriptions_for_user": `
			SELECT endpoint, p256dh_key, auth_key FROM push_subscriptions
			WHERE user_id = $1`,
		"upsert_subscription": `
			INSERT INTO push_subscriptions (user_id, endpoint, p256dh_key, auth_key)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, endpoint) DO UPDATE SET
				p256dh_key = EXCLUDED.p256dh_key,
				auth_key = EXCLUDED.auth_key
			RETURNING id`,

		// Users (delivery needs an email address)
		"user_contact": "SELECT email, name FROM users WHERE id = $1",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
