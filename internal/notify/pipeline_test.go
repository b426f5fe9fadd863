package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resetbiology/reminders/internal/schedule"
)

var genRef = time.Date(2024, time.January, 1, 6, 0, 0, 0, time.UTC)

func testScheduler(q Queue) *Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScheduler(q, logger).WithClock(func() time.Time { return genRef })
}

func testProtocol(id, userID string) Protocol {
	return Protocol{
		ID:          id,
		UserID:      userID,
		PeptideName: "BPC-157",
		Frequency:   "daily",
		Timing:      "twice daily",
		IsActive:    true,
	}
}

func TestScheduleProtocolInteractive(t *testing.T) {
	q := newFakeQueue()
	q.addProtocol(testProtocol("p1", "u1"))
	q.addPreference(Preference{UserID: "u1", ProtocolID: "p1", PushEnabled: true, ReminderMinutes: 15})

	out, err := testScheduler(q).ScheduleProtocol(context.Background(), "u1", "p1",
		ScheduleOptions{WindowDays: InteractiveWindowDays, Replace: true})
	require.NoError(t, err)

	// 7 days, twice daily, nothing dropped: start is 06:00 and the first
	// dose hour is 08:00.
	assert.Equal(t, 14, out.Scheduled)

	rows := q.unsentRows("p1")
	require.Len(t, rows, 14)
	for _, r := range rows {
		assert.True(t, r.ReminderTime.After(genRef), "reminder %s not in the future", r.ID)
		assert.False(t, r.ReminderTime.After(r.DoseTime), "reminder after dose")
		assert.Equal(t, 15*time.Minute, r.DoseTime.Sub(r.ReminderTime))
	}
}

// Rescheduling with a different lead time leaves exactly one unsent row
// per dose time — replace mode clears stale state.
func TestScheduleProtocolReplaceClearsStale(t *testing.T) {
	q := newFakeQueue()
	q.addProtocol(testProtocol("p1", "u1"))
	q.addPreference(Preference{UserID: "u1", ProtocolID: "p1", PushEnabled: true, ReminderMinutes: 15})

	s := testScheduler(q)
	_, err := s.ScheduleProtocol(context.Background(), "u1", "p1", ScheduleOptions{Replace: true})
	require.NoError(t, err)

	q.addPreference(Preference{UserID: "u1", ProtocolID: "p1", PushEnabled: true, ReminderMinutes: 30})
	_, err = s.ScheduleProtocol(context.Background(), "u1", "p1", ScheduleOptions{Replace: true})
	require.NoError(t, err)

	seen := map[int64]int{}
	for _, r := range q.unsentRows("p1") {
		seen[r.DoseTime.UnixNano()]++
		assert.Equal(t, 30*time.Minute, r.DoseTime.Sub(r.ReminderTime), "stale lead time survived")
	}
	for dose, count := range seen {
		assert.Equal(t, 1, count, "dose %s queued %d times", time.Unix(0, dose).UTC(), count)
	}
}

func TestScheduleProtocolNoPreferences(t *testing.T) {
	q := newFakeQueue()
	q.addProtocol(testProtocol("p1", "u1"))

	out, err := testScheduler(q).ScheduleProtocol(context.Background(), "u1", "p1", ScheduleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Scheduled)
	assert.Empty(t, q.unsentRows("p1"))
}

func TestScheduleProtocolPushDisabled(t *testing.T) {
	q := newFakeQueue()
	q.addProtocol(testProtocol("p1", "u1"))
	q.addPreference(Preference{UserID: "u1", ProtocolID: "p1", PushEnabled: false, ReminderMinutes: 15})

	out, err := testScheduler(q).ScheduleProtocol(context.Background(), "u1", "p1", ScheduleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Scheduled)
}

func TestScheduleProtocolWrongUser(t *testing.T) {
	q := newFakeQueue()
	q.addProtocol(testProtocol("p1", "u1"))

	_, err := testScheduler(q).ScheduleProtocol(context.Background(), "u2", "p1", ScheduleOptions{})
	assert.Error(t, err)
}

// An unrecognized frequency schedules nothing rather than defaulting to daily.
func TestScheduleProtocolUnknownFrequency(t *testing.T) {
	q := newFakeQueue()
	p := testProtocol("p1", "u1")
	p.Frequency = "whenever I remember"
	q.addProtocol(p)
	q.addPreference(Preference{UserID: "u1", ProtocolID: "p1", PushEnabled: true, ReminderMinutes: 15})

	out, err := testScheduler(q).ScheduleProtocol(context.Background(), "u1", "p1", ScheduleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Scheduled)
	assert.Empty(t, q.unsentRows("p1"))
}

// The timing label can live in the notes as a "Timing:" line.
func TestScheduleProtocolTimingFromNotes(t *testing.T) {
	q := newFakeQueue()
	p := testProtocol("p1", "u1")
	p.Timing = ""
	p.Notes = "Dosage: 250mcg\nTiming: before bed"
	q.addProtocol(p)
	q.addPreference(Preference{UserID: "u1", ProtocolID: "p1", PushEnabled: true, ReminderMinutes: 15})

	_, err := testScheduler(q).ScheduleProtocol(context.Background(), "u1", "p1", ScheduleOptions{Replace: true})
	require.NoError(t, err)

	rows := q.unsentRows("p1")
	require.NotEmpty(t, rows)
	for _, r := range rows {
		assert.Equal(t, 22, r.DoseTime.Hour())
	}
}

// Unknown timing labels degrade to a single 8 AM dose.
func TestScheduleProtocolUnknownTimingDefaults(t *testing.T) {
	q := newFakeQueue()
	p := testProtocol("p1", "u1")
	p.Timing = "whenever"
	q.addProtocol(p)
	q.addPreference(Preference{UserID: "u1", ProtocolID: "p1", PushEnabled: true, ReminderMinutes: 0})

	_, err := testScheduler(q).ScheduleProtocol(context.Background(), "u1", "p1", ScheduleOptions{Replace: true})
	require.NoError(t, err)

	rows := q.unsentRows("p1")
	require.NotEmpty(t, rows)
	for _, r := range rows {
		assert.Equal(t, 8, r.DoseTime.Hour())
	}
}

func TestScheduleProtocolNegativeReminderRejected(t *testing.T) {
	q := newFakeQueue()
	q.addProtocol(testProtocol("p1", "u1"))
	q.addPreference(Preference{UserID: "u1", ProtocolID: "p1", PushEnabled: true, ReminderMinutes: -5})

	_, err := testScheduler(q).ScheduleProtocol(context.Background(), "u1", "p1", ScheduleOptions{})
	assert.ErrorIs(t, err, schedule.ErrInvalidReminder)
}

// A long lead time pushes early reminders into the past; those pairs are
// dropped so no queued reminder ever predates generation time.
func TestScheduleProtocolDropsPastReminders(t *testing.T) {
	q := newFakeQueue()
	p := testProtocol("p1", "u1")
	p.Timing = "am" // dose 08:00, generation reference 06:00
	q.addProtocol(p)
	q.addPreference(Preference{UserID: "u1", ProtocolID: "p1", PushEnabled: true, ReminderMinutes: 180})

	out, err := testScheduler(q).ScheduleProtocol(context.Background(), "u1", "p1",
		ScheduleOptions{WindowDays: 2, Replace: true})
	require.NoError(t, err)

	// Day 0's reminder would fire at 05:00, before generation; only day 1
	// survives.
	assert.Equal(t, 1, out.Scheduled)
	for _, r := range q.unsentRows("p1") {
		assert.True(t, r.ReminderTime.After(genRef))
	}
}

func TestCancelProtocol(t *testing.T) {
	q := newFakeQueue()
	q.addProtocol(testProtocol("p1", "u1"))
	q.addPreference(Preference{UserID: "u1", ProtocolID: "p1", PushEnabled: true, ReminderMinutes: 15})

	s := testScheduler(q)
	_, err := s.ScheduleProtocol(context.Background(), "u1", "p1", ScheduleOptions{Replace: true})
	require.NoError(t, err)
	require.NotEmpty(t, q.unsentRows("p1"))

	removed, err := s.CancelProtocol(context.Background(), "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(14), removed)
	assert.Empty(t, q.unsentRows("p1"))
}
