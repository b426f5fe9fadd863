package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resetbiology/reminders/internal/schedule"
)

// Store is the Postgres-backed reminder queue. Statement names refer to
// the prepared statements registered in internal/db.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over an existing connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ProtocolByID returns a single protocol row.
func (s *Store) ProtocolByID(ctx context.Context, id string) (*Protocol, error) {
	var p Protocol
	err := s.pool.QueryRow(ctx, "protocol_by_id", id).Scan(
		&p.ID, &p.UserID, &p.PeptideName, &p.Frequency,
		&p.Timing, &p.Notes, &p.StartDate, &p.IsActive,
	)
	if err != nil {
		return nil, fmt.Errorf("get protocol %s: %w", id, err)
	}
	return &p, nil
}

// ActiveProtocols returns all protocols with is_active = true.
func (s *Store) ActiveProtocols(ctx context.Context) ([]Protocol, error) {
	rows, err := s.pool.Query(ctx, "active_protocols")
	if err != nil {
		return nil, fmt.Errorf("list active protocols: %w", err)
	}
	defer rows.Close()

	var protocols []Protocol
	for rows.Next() {
		var p Protocol
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.PeptideName, &p.Frequency,
			&p.Timing, &p.Notes, &p.StartDate, &p.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan protocol: %w", err)
		}
		protocols = append(protocols, p)
	}
	return protocols, rows.Err()
}

// PreferenceFor returns the reminder settings for a (user, protocol) pair,
// or nil when none have been saved yet.
func (s *Store) PreferenceFor(ctx context.Context, userID, protocolID string) (*Preference, error) {
	var p Preference
	err := s.pool.QueryRow(ctx, "preference_for_protocol", userID, protocolID).Scan(
		&p.ID, &p.UserID, &p.ProtocolID,
		&p.PushEnabled, &p.EmailEnabled, &p.ReminderMinutes,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preference: %w", err)
	}
	return &p, nil
}

// SavePreference inserts or updates the reminder settings for a
// (user, protocol) pair.
func (s *Store) SavePreference(ctx context.Context, p *Preference) error {
	err := s.pool.QueryRow(ctx, "upsert_preference",
		p.UserID, p.ProtocolID, p.PushEnabled, p.EmailEnabled, p.ReminderMinutes,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("save preference: %w", err)
	}
	return nil
}

// CountFutureUnsent counts unsent reminder rows with reminder_time at or
// after since for a protocol.
func (s *Store) CountFutureUnsent(ctx context.Context, protocolID string, since time.Time) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "count_future_unsent", protocolID, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count future reminders: %w", err)
	}
	return n, nil
}

// DeleteUnsent removes all unsent reminder rows for a (user, protocol)
// pair. Sent rows are history and stay.
func (s *Store) DeleteUnsent(ctx context.Context, userID, protocolID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, "delete_unsent", userID, protocolID)
	if err != nil {
		return 0, fmt.Errorf("delete unsent reminders: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Write persists generated (dose, reminder) pairs for a protocol.
//
// Replace mode deletes every unsent row for the pair first; the delete and
// the inserts share one transaction so a concurrent dispatch poll never
// observes the queue half-rewritten. Append mode inserts only pairs whose
// dose time is not already queued unsent, and never deletes. Returns the
// number of rows inserted.
func (s *Store) Write(ctx context.Context, userID, protocolID string, pairs []schedule.Pair, mode WriteMode) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin queue write: %w", err)
	}
	defer tx.Rollback(ctx)

	if mode == Replace {
		if _, err := tx.Exec(ctx, "delete_unsent", userID, protocolID); err != nil {
			return 0, fmt.Errorf("clear unsent reminders: %w", err)
		}
	} else {
		existing, err := unsentDoseTimes(ctx, tx, userID, protocolID)
		if err != nil {
			return 0, err
		}
		pairs = withoutQueued(pairs, existing)
	}

	inserted := 0
	for _, p := range pairs {
		_, err := tx.Exec(ctx, "insert_notification",
			uuid.NewString(), userID, protocolID,
			p.DoseTime, p.ReminderTime, TypePush,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert reminder: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit queue write: %w", err)
	}
	return inserted, nil
}

// Insert persists a single reminder row (test notifications).
func (s *Store) Insert(ctx context.Context, p *Pending) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Type == "" {
		p.Type = TypePush
	}
	_, err := s.pool.Exec(ctx, "insert_notification",
		p.ID, p.UserID, p.ProtocolID, p.DoseTime, p.ReminderTime, p.Type)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// SaveSubscription stores or refreshes a browser push subscription.
func (s *Store) SaveSubscription(ctx context.Context, userID string, sub Subscription) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx, "upsert_subscription",
		userID, sub.Endpoint, sub.P256dhKey, sub.AuthKey,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("save subscription: %w", err)
	}
	return id, nil
}

// SubscriptionsFor returns all push subscriptions registered for a user.
func (s *Store) SubscriptionsFor(ctx context.Context, userID string) ([]Subscription, error) {
	rows, err := s.pool.Query(ctx, "subscriptions_for_user", userID)
	if err != nil {
		return nil, fmt.Errorf("get subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.Endpoint, &sub.P256dhKey, &sub.AuthKey); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// UserContact returns the email address and display name for a user.
func (s *Store) UserContact(ctx context.Context, userID string) (email, name string, err error) {
	if err := s.pool.QueryRow(ctx, "user_contact", userID).Scan(&email, &name); err != nil {
		return "", "", fmt.Errorf("get user contact: %w", err)
	}
	return email, name, nil
}

// DueUnsent returns unsent reminder rows whose reminder time has passed,
// oldest first, capped at limit.
func (s *Store) DueUnsent(ctx context.Context, now time.Time, limit int) ([]Pending, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, protocol_id, dose_time, reminder_time, type
		FROM scheduled_notifications
		WHERE sent = false AND reminder_time <= $1
		ORDER BY reminder_time
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("get due reminders: %w", err)
	}
	defer rows.Close()

	var due []Pending
	for rows.Next() {
		var p Pending
		if err := rows.Scan(&p.ID, &p.UserID, &p.ProtocolID, &p.DoseTime, &p.ReminderTime, &p.Type); err != nil {
			return nil, fmt.Errorf("scan due reminder: %w", err)
		}
		due = append(due, p)
	}
	return due, rows.Err()
}

// DueUnsentFor returns one user's unsent reminder rows whose reminder time
// has passed. Debug surface.
func (s *Store) DueUnsentFor(ctx context.Context, userID string, now time.Time, limit int) ([]Pending, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, protocol_id, dose_time, reminder_time, type, sent, sent_at
		FROM scheduled_notifications
		WHERE user_id = $1 AND sent = false AND reminder_time <= $2
		ORDER BY reminder_time
		LIMIT $3`, userID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending reminders: %w", err)
	}
	defer rows.Close()
	return scanPending(rows)
}

// RecentForProtocol returns a user's reminder rows for one protocol with
// reminder times at or after since, newest first. A zero since means no
// lower bound.
func (s *Store) RecentForProtocol(ctx context.Context, userID, protocolID string, since time.Time, limit int) ([]Pending, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, protocol_id, dose_time, reminder_time, type, sent, sent_at
		FROM scheduled_notifications
		WHERE user_id = $1 AND protocol_id = $2 AND reminder_time >= $3
		ORDER BY reminder_time DESC
		LIMIT $4`, userID, protocolID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent reminders: %w", err)
	}
	defer rows.Close()
	return scanPending(rows)
}

// MarkSent flags a reminder as delivered.
func (s *Store) MarkSent(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE scheduled_notifications SET sent = true, sent_at = NOW()
		WHERE id = $1`, id)
	return err
}

// PurgeSentBefore removes sent rows older than the cutoff. Maintenance.
func (s *Store) PurgeSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM scheduled_notifications
		WHERE sent = true AND sent_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sent reminders: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func scanPending(rows pgx.Rows) ([]Pending, error) {
	var out []Pending
	for rows.Next() {
		var p Pending
		if err := rows.Scan(&p.ID, &p.UserID, &p.ProtocolID, &p.DoseTime, &p.ReminderTime, &p.Type, &p.Sent, &p.SentAt); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func unsentDoseTimes(ctx context.Context, tx pgx.Tx, userID, protocolID string) (map[int64]struct{}, error) {
	rows, err := tx.Query(ctx, "unsent_dose_times", userID, protocolID)
	if err != nil {
		return nil, fmt.Errorf("get queued dose times: %w", err)
	}
	defer rows.Close()

	queued := make(map[int64]struct{})
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan dose time: %w", err)
		}
		queued[t.UnixNano()] = struct{}{}
	}
	return queued, rows.Err()
}

// withoutQueued drops pairs whose dose time is already queued unsent.
// Duplicate suppression is by exact timestamp equality.
func withoutQueued(pairs []schedule.Pair, queued map[int64]struct{}) []schedule.Pair {
	kept := pairs[:0:0]
	for _, p := range pairs {
		if _, ok := queued[p.DoseTime.UnixNano()]; ok {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
