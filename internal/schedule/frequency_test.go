package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		label string
		want  Frequency
	}{
		{"daily", FrequencyDaily},
		{"Daily", FrequencyDaily},
		{"every day", FrequencyDaily},
		{"every other day", FrequencyEveryOtherDay},
		{"3x per week", FrequencyThreeWeekly},
		{"3x/week", FrequencyThreeWeekly},
		{"2x per week", FrequencyTwiceWeekly},
		{"2x/week", FrequencyTwiceWeekly},
		{"", FrequencyUnknown},
		{"weekly", FrequencyUnknown},
		{"as needed", FrequencyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFrequency(tt.label))
		})
	}
}

func TestShouldDoseDaily(t *testing.T) {
	for offset := 0; offset < 30; offset++ {
		assert.True(t, FrequencyDaily.ShouldDose(offset), "offset %d", offset)
	}
}

func TestShouldDoseEveryOtherDay(t *testing.T) {
	for offset := 0; offset < 30; offset++ {
		want := offset%2 == 0
		assert.Equal(t, want, FrequencyEveryOtherDay.ShouldDose(offset), "offset %d", offset)
	}
}

// The 3x-per-week pattern is day offsets {0,2,4} of each 7-day block from
// the generation start day: 0,2,4,7,9,11,14,...
func TestShouldDoseThreeWeekly(t *testing.T) {
	dosing := map[int]bool{}
	for _, offset := range []int{0, 2, 4, 7, 9, 11, 14, 16, 18, 21, 23, 25, 28} {
		dosing[offset] = true
	}
	for offset := 0; offset < 30; offset++ {
		assert.Equal(t, dosing[offset], FrequencyThreeWeekly.ShouldDose(offset), "offset %d", offset)
	}
}

func TestShouldDoseTwiceWeekly(t *testing.T) {
	dosing := map[int]bool{}
	for _, offset := range []int{0, 3, 7, 10, 14, 17, 21, 24, 28} {
		dosing[offset] = true
	}
	for offset := 0; offset < 30; offset++ {
		assert.Equal(t, dosing[offset], FrequencyTwiceWeekly.ShouldDose(offset), "offset %d", offset)
	}
}

// Unrecognized frequencies schedule nothing — not a fallback to daily.
func TestShouldDoseUnknown(t *testing.T) {
	for offset := 0; offset < 30; offset++ {
		assert.False(t, FrequencyUnknown.ShouldDose(offset), "offset %d", offset)
	}
}
