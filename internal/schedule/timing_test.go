package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTiming(t *testing.T) {
	tests := []struct {
		label string
		want  Timing
	}{
		{"am", TimingAM},
		{"AM", TimingAM},
		{"  pm ", TimingPM},
		{"twice daily", TimingTwiceDaily},
		{"Twice Daily", TimingTwiceDaily},
		{"morning", TimingMorning},
		{"evening", TimingEvening},
		{"before bed", TimingBeforeBed},
		{"upon waking", TimingUponWaking},
		{"", TimingUnknown},
		{"at lunch", TimingUnknown},
		{"8am", TimingUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTiming(tt.label))
		})
	}
}

func TestTimingHours(t *testing.T) {
	tests := []struct {
		timing Timing
		want   []int
	}{
		{TimingAM, []int{8}},
		{TimingMorning, []int{8}},
		{TimingPM, []int{20}},
		{TimingEvening, []int{20}},
		{TimingTwiceDaily, []int{8, 20}},
		{TimingBeforeBed, []int{22}},
		{TimingUponWaking, []int{7}},
		{TimingUnknown, []int{8}}, // documented default
	}
	for _, tt := range tests {
		t.Run(tt.timing.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.timing.Hours())
		})
	}
}

func TestTimingFromNotes(t *testing.T) {
	tests := []struct {
		name  string
		notes string
		want  Timing
	}{
		{"simple", "Timing: AM", TimingAM},
		{"lowercase prefix", "timing: before bed", TimingBeforeBed},
		{"among other lines", "Dosage: 250mcg\nTiming: twice daily\nCycle: 5 on 2 off", TimingTwiceDaily},
		{"first line wins", "Timing: PM\nTiming: AM", TimingPM},
		{"no timing line", "take with food", TimingUnknown},
		{"unrecognized value", "Timing: whenever", TimingUnknown},
		{"empty", "", TimingUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimingFromNotes(tt.notes))
		})
	}
}
