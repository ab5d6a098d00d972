package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTuning() Tuning {
	return Tuning{
		DecayPerHour:    2.0,
		InteractionGain: 5.0,
		MinRate:         0.1,
		MaxRate:         0.6,
		Morning:         1.2,
		Afternoon:       1.0,
		Evening:         0.8,
		Night:           0.5,
	}
}

func TestNewStateDefaults(t *testing.T) {
	s := NewState("alice", testTuning())

	assert.Equal(t, "alice", s.ID())
	assert.Equal(t, MoodNeutral, s.Mood())
	assert.Equal(t, 80.0, s.Energy())
	assert.True(t, s.Online())
	assert.False(t, s.InCooldown(time.Now()))
}

func TestTickDecaysEnergy(t *testing.T) {
	s := NewState("alice", testTuning())
	s.SetRandSource(func() float64 { return 1.0 }) // no mood nudges

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.Tick(base)
	require.Equal(t, 80.0, s.Energy(), "first tick must not decay")

	s.Tick(base.Add(2 * time.Hour))
	assert.InDelta(t, 76.0, s.Energy(), 0.001)

	s.Tick(base.Add(3 * time.Hour))
	assert.InDelta(t, 74.0, s.Energy(), 0.001)
}

func TestTickIdempotent(t *testing.T) {
	s := NewState("alice", testTuning())

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.Tick(base)
	s.Tick(base.Add(time.Hour))
	energy := s.Energy()

	// Repeated and out-of-order ticks must not double-decay.
	s.Tick(base.Add(time.Hour))
	s.Tick(base)
	assert.Equal(t, energy, s.Energy())
}

func TestEnergyNeverNegative(t *testing.T) {
	s := NewState("alice", testTuning())
	s.SetRandSource(func() float64 { return 1.0 })

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.Tick(base)
	s.Tick(base.Add(1000 * time.Hour))
	assert.Equal(t, 0.0, s.Energy())
}

func TestEnergyMonotonicBetweenInteractions(t *testing.T) {
	s := NewState("alice", testTuning())
	s.SetRandSource(func() float64 { return 1.0 })

	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	s.Tick(base)

	prev := s.Energy()
	for i := 1; i <= 48; i++ {
		s.Tick(base.Add(time.Duration(i) * 30 * time.Minute))
		cur := s.Energy()
		require.LessOrEqual(t, cur, prev, "energy must not rise without interactions")
		require.GreaterOrEqual(t, cur, 0.0)
		prev = cur
	}
}

func TestOnInteractionGain(t *testing.T) {
	tests := []struct {
		name   string
		energy float64
		want   float64
	}{
		{"normal gain", 50, 55},
		{"capped at 100", 98, 100},
		{"from zero", 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState("alice", testTuning())
			s.SetRandSource(func() float64 { return 1.0 })
			s.SetMood(MoodNeutral, tt.energy-s.Energy())
			require.Equal(t, tt.energy, s.Energy())

			s.OnInteraction(time.Now())
			assert.Equal(t, tt.want, s.Energy())
		})
	}
}

func TestOnInteractionMoodNudge(t *testing.T) {
	s := NewState("alice", testTuning())

	// Always trigger the nudge path.
	s.SetRandSource(func() float64 { return 0.0 })

	require.Equal(t, MoodNeutral, s.Mood())
	s.OnInteraction(time.Now())
	assert.Equal(t, MoodHappy, s.Mood())
	s.OnInteraction(time.Now())
	assert.Equal(t, MoodExcited, s.Mood())

	// Excited is as far as the nudge goes.
	s.OnInteraction(time.Now())
	assert.Equal(t, MoodExcited, s.Mood())
}

// seqRand plays back the given draws in order, then returns 1.0 forever.
func seqRand(draws ...float64) func() float64 {
	i := 0
	return func() float64 {
		if i < len(draws) {
			v := draws[i]
			i++
			return v
		}
		return 1.0
	}
}

func TestMoodDriftsWhenIdle(t *testing.T) {
	tests := []struct {
		name        string
		startMood   Mood
		energyDelta float64
		hour        int
		draws       []float64
		want        Mood
	}{
		{"drained drifts tired", MoodNeutral, -60, 14, []float64{0.05, 0.3}, MoodTired},
		{"drained drifts melancholy", MoodNeutral, -60, 14, []float64{0.05, 0.7}, MoodMelancholy},
		{"night pulls toward tired", MoodHappy, 0, 23, []float64{0.05, 0.0}, MoodTired},
		{"quiet daytime settles to neutral", MoodHappy, 0, 14, []float64{0.05, 0.0}, MoodNeutral},
		{"drift gate usually fails", MoodHappy, 0, 14, []float64{0.5, 0.0}, MoodHappy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState("alice", testTuning())
			s.SetMood(tt.startMood, tt.energyDelta)

			base := time.Date(2025, 3, 10, tt.hour, 0, 0, 0, time.UTC)
			s.Tick(base) // anchors the idle clock, no draws
			s.SetRandSource(seqRand(tt.draws...))

			s.Tick(base.Add(3 * time.Hour))
			assert.Equal(t, tt.want, s.Mood())
		})
	}
}

func TestMoodDriftNeedsLongIdle(t *testing.T) {
	s := NewState("alice", testTuning())
	s.SetRandSource(func() float64 { return 0.0 })

	base := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	s.Tick(base)
	s.Tick(base.Add(time.Hour))
	assert.Equal(t, MoodNeutral, s.Mood(), "no drift before the idle threshold")
}

func TestMoodDriftClockResetsOnInteraction(t *testing.T) {
	s := NewState("alice", testTuning())
	s.SetRandSource(func() float64 { return 0.0 })

	base := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	s.Tick(base)
	s.OnInteraction(base.Add(90 * time.Minute)) // nudges Neutral -> Happy
	require.Equal(t, MoodHappy, s.Mood())

	// 2.5h after the first tick but only 1h after the interaction: a recent
	// interaction keeps the drift from firing.
	s.Tick(base.Add(150 * time.Minute))
	assert.Equal(t, MoodHappy, s.Mood())
}

func TestCooldown(t *testing.T) {
	s := NewState("alice", testTuning())

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.MarkAction(base, 5*time.Minute)

	assert.True(t, s.InCooldown(base.Add(time.Minute)))
	assert.True(t, s.InCooldown(base.Add(5*time.Minute-time.Second)))
	assert.False(t, s.InCooldown(base.Add(5*time.Minute)))
	assert.False(t, s.InCooldown(base.Add(5*time.Minute+time.Second)))
}

func TestApplyFailurePenalty(t *testing.T) {
	s := NewState("alice", testTuning())
	moodBefore := s.Mood()

	s.ApplyFailurePenalty(2.0)
	assert.Equal(t, 78.0, s.Energy())
	assert.Equal(t, moodBefore, s.Mood(), "mood must not change on task failure")

	s.ApplyFailurePenalty(1000)
	assert.Equal(t, 0.0, s.Energy())
}

func TestOfflineRetainsState(t *testing.T) {
	s := NewState("alice", testTuning())
	s.SetRandSource(func() float64 { return 1.0 })

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	s.Tick(base)
	s.SetOnline(false)
	s.Tick(base.Add(2 * time.Hour))

	assert.False(t, s.Online())
	assert.InDelta(t, 76.0, s.Energy(), 0.001, "offline agents keep decaying, state is not reset")
}

func TestDailyReset(t *testing.T) {
	s := NewState("alice", testTuning())
	s.SetRandSource(func() float64 { return 0.5 })

	day1 := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	s.DailyReset(day1)
	s.SetMood(MoodTired, -60) // energy 20

	day2 := day1.Add(2 * time.Hour)
	s.DailyReset(day2)
	assert.InDelta(t, 45.0, s.Energy(), 0.001, "drained agents recover 20 + rand*10 overnight")

	// Same day again is a no-op.
	energy := s.Energy()
	s.DailyReset(day2.Add(time.Hour))
	assert.Equal(t, energy, s.Energy())
}

func TestSnapshot(t *testing.T) {
	s := NewState("alice", testTuning())
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	snap := s.Snapshot(now)
	assert.Equal(t, "alice", snap.ID)
	assert.Equal(t, 80.0, snap.Energy)
	assert.True(t, snap.Online)
	assert.True(t, snap.LastActionAt.IsZero())
	assert.GreaterOrEqual(t, snap.Rate, 0.1)
	assert.LessOrEqual(t, snap.Rate, 0.6)
}
