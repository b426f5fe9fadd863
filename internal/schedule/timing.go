// Package schedule computes concrete dose and reminder times from a
// protocol's free-text timing and frequency labels. It performs no I/O;
// callers pass the generation reference time explicitly so results are
// deterministic.
package schedule

import "strings"

// Timing is a recognized dosing-time label. Labels come from protocol
// records as free text; anything unrecognized maps to TimingUnknown and
// the caller decides how to handle it (the queue writer logs and falls
// back to a single morning dose).
type Timing int

const (
	TimingUnknown Timing = iota
	TimingAM
	TimingPM
	TimingTwiceDaily
	TimingMorning
	TimingEvening
	TimingBeforeBed
	TimingUponWaking
)

// ParseTiming maps a free-text timing label to a Timing. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseTiming(label string) Timing {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "am":
		return TimingAM
	case "pm":
		return TimingPM
	case "twice daily":
		return TimingTwiceDaily
	case "morning":
		return TimingMorning
	case "evening":
		return TimingEvening
	case "before bed":
		return TimingBeforeBed
	case "upon waking":
		return TimingUponWaking
	default:
		return TimingUnknown
	}
}

// TimingFromNotes extracts a timing label from free-text protocol notes.
// The portal writes notes lines of the form "Timing: AM"; the first such
// line wins. Returns TimingUnknown when no line matches.
func TimingFromNotes(notes string) Timing {
	for _, line := range strings.Split(notes, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := cutPrefixFold(line, "timing:")
		if !ok {
			continue
		}
		return ParseTiming(rest)
	}
	return TimingUnknown
}

// Hours returns the hours of day (0-23) a dose is due for this timing.
// TimingUnknown defaults to a single 8 AM dose; callers that care about
// the distinction should check for TimingUnknown before calling.
func (t Timing) Hours() []int {
	switch t {
	case TimingAM, TimingMorning:
		return []int{8}
	case TimingPM, TimingEvening:
		return []int{20}
	case TimingTwiceDaily:
		return []int{8, 20}
	case TimingBeforeBed:
		return []int{22}
	case TimingUponWaking:
		return []int{7}
	default:
		return []int{8}
	}
}

// String returns the canonical label for the timing.
func (t Timing) String() string {
	switch t {
	case TimingAM:
		return "am"
	case TimingPM:
		return "pm"
	case TimingTwiceDaily:
		return "twice daily"
	case TimingMorning:
		return "morning"
	case TimingEvening:
		return "evening"
	case TimingBeforeBed:
		return "before bed"
	case TimingUponWaking:
		return "upon waking"
	default:
		return "unknown"
	}
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(s[len(prefix):]), true
}
