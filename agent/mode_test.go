package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucketOf(t *testing.T) {
	tests := []struct {
		hour int
		want TimeBucket
	}{
		{0, Night},
		{5, Night},
		{6, Morning},
		{11, Morning},
		{12, Afternoon},
		{17, Afternoon},
		{18, Evening},
		{21, Evening},
		{22, Night},
		{23, Night},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			at := time.Date(2025, 3, 10, tt.hour, 30, 0, 0, time.UTC)
			assert.Equal(t, tt.want, BucketOf(at), "hour %d", tt.hour)
		})
	}
}

func TestDeriveMode(t *testing.T) {
	tests := []struct {
		name    string
		mood    Mood
		energy  float64
		bucket  TimeBucket
		focused bool
		want    ActivityMode
	}{
		{"focused wins over everything", MoodExcited, 90, Morning, true, ModeFocused},
		{"focused wins even when drained", MoodTired, 5, Night, true, ModeFocused},
		{"drained is sleepy", MoodHappy, 15, Afternoon, false, ModeSleepy},
		{"melancholy low energy is calm", MoodMelancholy, 40, Morning, false, ModeCalm},
		{"melancholy high energy follows bucket", MoodMelancholy, 70, Afternoon, false, ModeNormal},
		{"night low energy is sleepy", MoodNeutral, 35, Night, false, ModeSleepy},
		{"excited with energy is energetic", MoodExcited, 60, Evening, false, ModeEnergetic},
		{"excited but drained loses out", MoodExcited, 50, Evening, false, ModeSocial},
		{"morning default", MoodNeutral, 70, Morning, false, ModeEnergetic},
		{"afternoon default", MoodNeutral, 70, Afternoon, false, ModeNormal},
		{"evening default", MoodNeutral, 70, Evening, false, ModeSocial},
		{"night default", MoodNeutral, 70, Night, false, ModeCalm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveMode(tt.mood, tt.energy, tt.bucket, tt.focused)
			assert.Equal(t, tt.want, got)
		})
	}
}
