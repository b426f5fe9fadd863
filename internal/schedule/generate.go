package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidReminder is returned when a reminder lead time is negative.
// A negative lead would place the reminder after the dose.
var ErrInvalidReminder = errors.New("reminder minutes must not be negative")

// Pair couples a dose time with the moment its reminder should fire.
// ReminderTime is always at or before DoseTime.
type Pair struct {
	DoseTime     time.Time
	ReminderTime time.Time
}

// DoseTimes projects concrete dose timestamps over a rolling window of
// windowDays days starting at start. For each day offset where the
// frequency is due, one timestamp per hour is emitted at hour:00:00 in
// start's location. Timestamps at or before start are dropped — a dose is
// never scheduled in the past relative to generation time. The result is
// chronological and holds at most windowDays*len(hours) entries.
func DoseTimes(start time.Time, hours []int, freq Frequency, windowDays int) []time.Time {
	if len(hours) == 0 || windowDays <= 0 {
		return nil
	}

	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())

	var doses []time.Time
	for offset := 0; offset < windowDays; offset++ {
		if !freq.ShouldDose(offset) {
			continue
		}
		candidate := day.AddDate(0, 0, offset)
		for _, hour := range hours {
			dose := time.Date(candidate.Year(), candidate.Month(), candidate.Day(),
				hour, 0, 0, 0, candidate.Location())
			if dose.After(start) {
				doses = append(doses, dose)
			}
		}
	}
	return doses
}

// WithReminders pairs each dose time with a reminder time reminderMinutes
// earlier. reminderMinutes of zero means the reminder fires at dose time;
// negative values are rejected.
func WithReminders(doses []time.Time, reminderMinutes int) ([]Pair, error) {
	if reminderMinutes < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidReminder, reminderMinutes)
	}

	lead := time.Duration(reminderMinutes) * time.Minute
	pairs := make([]Pair, 0, len(doses))
	for _, dose := range doses {
		pairs = append(pairs, Pair{
			DoseTime:     dose,
			ReminderTime: dose.Add(-lead),
		})
	}
	return pairs, nil
}
