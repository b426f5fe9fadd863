package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

// Twice daily over a 2-day window starting before the first dose hour:
// all four doses land.
func TestDoseTimesTwiceDaily(t *testing.T) {
	start := at(2024, time.January, 1, 6, 0)
	doses := DoseTimes(start, TimingTwiceDaily.Hours(), FrequencyDaily, 2)

	require.Len(t, doses, 4)
	assert.Equal(t, at(2024, time.January, 1, 8, 0), doses[0])
	assert.Equal(t, at(2024, time.January, 1, 20, 0), doses[1])
	assert.Equal(t, at(2024, time.January, 2, 8, 0), doses[2])
	assert.Equal(t, at(2024, time.January, 2, 20, 0), doses[3])
}

// Starting after the morning hour drops that day's first dose.
func TestDoseTimesSkipsPast(t *testing.T) {
	start := at(2024, time.January, 1, 9, 0)
	doses := DoseTimes(start, TimingTwiceDaily.Hours(), FrequencyDaily, 2)

	require.Len(t, doses, 3)
	assert.Equal(t, at(2024, time.January, 1, 20, 0), doses[0])
}

// A dose exactly at the reference time is not included; strictly after only.
func TestDoseTimesExcludesStartReference(t *testing.T) {
	start := at(2024, time.January, 1, 8, 0)
	doses := DoseTimes(start, []int{8}, FrequencyDaily, 2)

	require.Len(t, doses, 1)
	assert.Equal(t, at(2024, time.January, 2, 8, 0), doses[0])
}

func TestDoseTimesEveryOtherDay(t *testing.T) {
	start := at(2024, time.March, 10, 0, 30)
	doses := DoseTimes(start, []int{8}, FrequencyEveryOtherDay, 7)

	// Offsets 0, 2, 4, 6.
	require.Len(t, doses, 4)
	assert.Equal(t, at(2024, time.March, 10, 8, 0), doses[0])
	assert.Equal(t, at(2024, time.March, 12, 8, 0), doses[1])
	assert.Equal(t, at(2024, time.March, 14, 8, 0), doses[2])
	assert.Equal(t, at(2024, time.March, 16, 8, 0), doses[3])
}

func TestDoseTimesUnknownFrequency(t *testing.T) {
	start := at(2024, time.January, 1, 0, 0)
	assert.Empty(t, DoseTimes(start, []int{8}, FrequencyUnknown, 30))
}

func TestDoseTimesEmptyHours(t *testing.T) {
	start := at(2024, time.January, 1, 0, 0)
	assert.Empty(t, DoseTimes(start, nil, FrequencyDaily, 7))
}

func TestDoseTimesBoundsAndOrder(t *testing.T) {
	start := at(2024, time.June, 15, 11, 45)
	hours := TimingTwiceDaily.Hours()
	doses := DoseTimes(start, hours, FrequencyDaily, 30)

	assert.LessOrEqual(t, len(doses), 30*len(hours))
	for i, d := range doses {
		assert.True(t, d.After(start), "dose %d not after start", i)
		if i > 0 {
			assert.True(t, d.After(doses[i-1]), "dose %d out of order", i)
		}
	}
}

func TestWithReminders(t *testing.T) {
	doses := []time.Time{at(2024, time.January, 1, 8, 0)}

	pairs, err := WithReminders(doses, 15)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, at(2024, time.January, 1, 8, 0), pairs[0].DoseTime)
	assert.Equal(t, at(2024, time.January, 1, 7, 45), pairs[0].ReminderTime)
}

// Zero lead time means the reminder fires exactly at dose time.
func TestWithRemindersZeroLead(t *testing.T) {
	doses := []time.Time{at(2024, time.January, 1, 8, 0)}

	pairs, err := WithReminders(doses, 0)
	require.NoError(t, err)
	assert.True(t, pairs[0].ReminderTime.Equal(pairs[0].DoseTime))
}

func TestWithRemindersRejectsNegative(t *testing.T) {
	_, err := WithReminders([]time.Time{at(2024, time.January, 1, 8, 0)}, -5)
	assert.ErrorIs(t, err, ErrInvalidReminder)
}

// Reminders always precede or equal their dose across a realistic window.
func TestReminderPrecedesDose(t *testing.T) {
	start := at(2024, time.February, 1, 5, 0)
	doses := DoseTimes(start, TimingTwiceDaily.Hours(), FrequencyThreeWeekly, 30)

	pairs, err := WithReminders(doses, 30)
	require.NoError(t, err)
	for _, p := range pairs {
		assert.False(t, p.ReminderTime.After(p.DoseTime))
	}
}
