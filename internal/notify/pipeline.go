package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resetbiology/reminders/internal/schedule"
)

// Queue is the storage surface the scheduling paths need. *Store satisfies
// it; tests substitute an in-memory fake.
type Queue interface {
	ProtocolByID(ctx context.Context, id string) (*Protocol, error)
	ActiveProtocols(ctx context.Context) ([]Protocol, error)
	PreferenceFor(ctx context.Context, userID, protocolID string) (*Preference, error)
	SavePreference(ctx context.Context, p *Preference) error
	CountFutureUnsent(ctx context.Context, protocolID string, since time.Time) (int, error)
	DeleteUnsent(ctx context.Context, userID, protocolID string) (int64, error)
	Write(ctx context.Context, userID, protocolID string, pairs []schedule.Pair, mode WriteMode) (int, error)
	Insert(ctx context.Context, p *Pending) error
}

// Scheduler generates reminder rows for protocols. The clock is injected
// so tests can pin the generation reference time.
type Scheduler struct {
	queue  Queue
	now    func() time.Time
	logger *slog.Logger
}

// NewScheduler creates a Scheduler using the system clock.
func NewScheduler(q Queue, logger *slog.Logger) *Scheduler {
	return &Scheduler{queue: q, now: time.Now, logger: logger}
}

// WithClock overrides the scheduler's time source. Test hook.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// ScheduleOptions controls one scheduling pass.
type ScheduleOptions struct {
	// WindowDays is the generation horizon. Zero falls back to
	// InteractiveWindowDays.
	WindowDays int

	// Replace clears the protocol's unsent queue before writing. The
	// interactive settings path replaces; the sweeper appends.
	Replace bool
}

// ScheduleProtocol generates and persists reminder rows for one protocol.
//
// The protocol's timing label (column or "Timing:" notes line) yields the
// dose hours; the frequency label yields the dosing-day predicate; dose
// times are projected over the window and offset by the user's reminder
// lead. Reminders whose fire time is not in the future are dropped so the
// queue never holds a reminder the dispatch worker cannot reach.
func (s *Scheduler) ScheduleProtocol(ctx context.Context, userID, protocolID string, opts ScheduleOptions) (*ScheduleOutcome, error) {
	protocol, err := s.queue.ProtocolByID(ctx, protocolID)
	if err != nil {
		return nil, err
	}
	if protocol.UserID != userID {
		return nil, fmt.Errorf("protocol %s does not belong to user %s", protocolID, userID)
	}

	prefs, err := s.queue.PreferenceFor(ctx, userID, protocolID)
	if err != nil {
		return nil, err
	}
	if prefs == nil || !prefs.PushEnabled {
		s.logger.Info("Push reminders disabled, nothing to schedule", "protocol_id", protocolID)
		return &ScheduleOutcome{Scheduled: 0, Message: "push reminders disabled"}, nil
	}

	windowDays := opts.WindowDays
	if windowDays <= 0 {
		windowDays = InteractiveWindowDays
	}

	timing := schedule.ParseTiming(protocol.Timing)
	if timing == schedule.TimingUnknown {
		timing = schedule.TimingFromNotes(protocol.Notes)
	}
	if timing == schedule.TimingUnknown {
		// Unrecognized labels degrade to a single morning dose. Logged so
		// the silent default stays visible in operation.
		s.logger.Warn("Unrecognized timing label, defaulting to 8 AM",
			"protocol_id", protocolID, "timing", protocol.Timing)
	}

	freq := schedule.ParseFrequency(protocol.Frequency)
	if freq == schedule.FrequencyUnknown {
		s.logger.Warn("Unrecognized frequency label, no doses scheduled",
			"protocol_id", protocolID, "frequency", protocol.Frequency)
		return &ScheduleOutcome{Scheduled: 0, Message: "no dose schedule for frequency"}, nil
	}

	now := s.now()
	doses := schedule.DoseTimes(now, timing.Hours(), freq, windowDays)
	pairs, err := schedule.WithReminders(doses, prefs.ReminderMinutes)
	if err != nil {
		return nil, err
	}
	pairs = futureOnly(pairs, now)

	mode := Append
	if opts.Replace {
		mode = Replace
	}
	inserted, err := s.queue.Write(ctx, userID, protocolID, pairs, mode)
	if err != nil {
		return nil, fmt.Errorf("write reminder queue: %w", err)
	}

	s.logger.Info("Reminders scheduled",
		"protocol_id", protocolID,
		"mode", mode.String(),
		"window_days", windowDays,
		"scheduled", inserted)
	return &ScheduleOutcome{Scheduled: inserted, Message: "scheduled"}, nil
}

// CancelProtocol removes all future unsent reminders for a protocol, for
// when the user turns push reminders off.
func (s *Scheduler) CancelProtocol(ctx context.Context, userID, protocolID string) (int64, error) {
	removed, err := s.queue.DeleteUnsent(ctx, userID, protocolID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Reminders cancelled", "protocol_id", protocolID, "removed", removed)
	return removed, nil
}

// futureOnly drops pairs whose reminder would fire at or before now.
func futureOnly(pairs []schedule.Pair, now time.Time) []schedule.Pair {
	kept := pairs[:0:0]
	for _, p := range pairs {
		if p.ReminderTime.After(now) {
			kept = append(kept, p)
		}
	}
	return kept
}
