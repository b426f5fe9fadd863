package schedule

import "strings"

// Frequency is a recognized dosing-frequency label. An unrecognized label
// maps to FrequencyUnknown, which schedules no doses at all — a deliberate
// policy, not a fallback to daily. Week-based patterns are anchored to the
// generation start day, not to calendar weekdays, so a "3x per week"
// protocol doses on day offsets 0, 2 and 4 of whatever day generation
// started on.
type Frequency int

const (
	FrequencyUnknown Frequency = iota
	FrequencyDaily
	FrequencyEveryOtherDay
	FrequencyThreeWeekly
	FrequencyTwiceWeekly
)

// ParseFrequency maps a free-text frequency label to a Frequency.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseFrequency(label string) Frequency {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "daily", "every day":
		return FrequencyDaily
	case "every other day":
		return FrequencyEveryOtherDay
	case "3x per week", "3x/week":
		return FrequencyThreeWeekly
	case "2x per week", "2x/week":
		return FrequencyTwiceWeekly
	default:
		return FrequencyUnknown
	}
}

// ShouldDose reports whether a dose is due on the given day offset from
// the generation start day. Offset 0 is the start day itself.
func (f Frequency) ShouldDose(dayOffset int) bool {
	switch f {
	case FrequencyDaily:
		return true
	case FrequencyEveryOtherDay:
		return dayOffset%2 == 0
	case FrequencyThreeWeekly:
		switch dayOffset % 7 {
		case 0, 2, 4:
			return true
		}
		return false
	case FrequencyTwiceWeekly:
		switch dayOffset % 7 {
		case 0, 3:
			return true
		}
		return false
	default:
		return false
	}
}

// String returns the canonical label for the frequency.
func (f Frequency) String() string {
	switch f {
	case FrequencyDaily:
		return "daily"
	case FrequencyEveryOtherDay:
		return "every other day"
	case FrequencyThreeWeekly:
		return "3x per week"
	case FrequencyTwiceWeekly:
		return "2x per week"
	default:
		return "unknown"
	}
}
