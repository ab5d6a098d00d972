package agent

import (
	"math/rand"
	"sync"
	"time"
)

// State tracks one agent's mood, energy, and derived activity mode.
//
// Two paths write to a State: the arbiter's scheduling tick and the
// interaction entry point called by the transport collaborator. The internal
// mutex serializes them; all exported methods are safe for concurrent use.
type State struct {
	mu sync.Mutex

	id      string
	mood    Mood
	energy  float64
	mode    ActivityMode
	online  bool
	focused bool

	lastActionAt      time.Time
	lastTickAt        time.Time
	lastInteractionAt time.Time
	nextCooldown      time.Duration

	interactionsToday int
	actionsToday      int
	lastReset         time.Time

	tuning Tuning
	randFn func() float64
}

// Snapshot is a read-only copy of an agent's state at a point in time.
type Snapshot struct {
	ID           string
	Mood         Mood
	Energy       float64
	Mode         ActivityMode
	Online       bool
	LastActionAt time.Time
	Rate         float64
}

const initialEnergy = 80.0

// Mood drift: after moodDriftIdle without an interaction, each tick has a
// moodDriftChance of moving the mood on its own, so agents left alone drift
// toward Tired, Melancholy, or back to Neutral instead of freezing.
const (
	moodDriftIdle   = 2 * time.Hour
	moodDriftChance = 0.1
)

// NewState creates an agent state with the initial defaults: online, energy
// 80, neutral mood, never acted.
func NewState(id string, tuning Tuning) *State {
	s := &State{
		id:     id,
		mood:   MoodNeutral,
		energy: initialEnergy,
		online: true,
		tuning: tuning,
		randFn: rand.Float64,
	}
	s.mode = DeriveMode(s.mood, s.energy, BucketOf(time.Now()), s.focused)
	return s
}

// SetRandSource overrides the randomness source used for mood nudges and the
// daily energy recovery. Intended for deterministic tests.
func (s *State) SetRandSource(fn func() float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.randFn = fn
}

// ID returns the agent's identifier.
func (s *State) ID() string {
	return s.id
}

// Tick applies energy decay proportional to the wall-clock time elapsed since
// the previous tick, runs the scheduled mood drift for long-idle agents, then
// recomputes the activity mode. Repeated calls with the same now are no-ops,
// so decay is never applied twice.
func (s *State) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastTickAt.IsZero() && !now.After(s.lastTickAt) {
		return
	}
	if !s.lastTickAt.IsZero() {
		hours := now.Sub(s.lastTickAt).Hours()
		s.energy -= s.tuning.DecayPerHour * hours
		if s.energy < 0 {
			s.energy = 0
		}
	}

	if s.lastInteractionAt.IsZero() {
		s.lastInteractionAt = now
	} else if now.Sub(s.lastInteractionAt) >= moodDriftIdle && s.randFn() < moodDriftChance {
		s.mood = driftMood(s.energy, BucketOf(now), s.randFn())
	}

	s.lastTickAt = now
	s.mode = DeriveMode(s.mood, s.energy, BucketOf(now), s.focused)
}

// OnInteraction records a qualifying user interaction: energy gains the
// configured amount (capped at 100) and the mood may take a small step toward
// Happy or Excited.
func (s *State) OnInteraction(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.energy += s.tuning.InteractionGain
	if s.energy > 100 {
		s.energy = 100
	}
	s.interactionsToday++
	s.lastInteractionAt = now

	switch s.mood {
	case MoodTired, MoodMelancholy:
		if s.randFn() < 0.3 {
			s.mood = MoodNeutral
		}
	case MoodNeutral:
		if s.randFn() < 0.4 {
			s.mood = MoodHappy
		}
	case MoodHappy:
		if s.randFn() < 0.2 {
			s.mood = MoodExcited
		}
	}

	if now.After(s.lastTickAt) {
		s.lastTickAt = now
	}
	s.mode = DeriveMode(s.mood, s.energy, BucketOf(now), s.focused)
}

// MarkAction records a spontaneous action submission: the action timestamp is
// set and the next cooldown is armed. Called synchronously with submission,
// not on completion.
func (s *State) MarkAction(now time.Time, cooldown time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActionAt = now
	s.nextCooldown = cooldown
	s.actionsToday++
}

// InCooldown reports whether the agent is still inside the cooldown drawn at
// its last action. An agent that never acted is not cooling.
func (s *State) InCooldown(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastActionAt.IsZero() {
		return false
	}
	return now.Sub(s.lastActionAt) < s.nextCooldown
}

// ApplyFailurePenalty deducts energy after a terminal action failure. Mood is
// left unchanged and the action timestamp is not reverted.
func (s *State) ApplyFailurePenalty(penalty float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.energy -= penalty
	if s.energy < 0 {
		s.energy = 0
	}
}

// SetOnline toggles arbitration eligibility. Going offline retains the
// decayed state.
func (s *State) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = online
}

// Online reports whether the agent participates in arbitration.
func (s *State) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetFocused sets the external focus override. A focused agent derives the
// Focused mode regardless of mood and energy.
func (s *State) SetFocused(focused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.focused = focused
	s.mode = DeriveMode(s.mood, s.energy, BucketOf(time.Now()), s.focused)
}

// SetMood forces the mood and an optional energy delta. Debug hook.
func (s *State) SetMood(mood Mood, energyDelta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mood = mood
	s.energy += energyDelta
	if s.energy < 0 {
		s.energy = 0
	}
	if s.energy > 100 {
		s.energy = 100
	}
}

// Rate returns the agent's current activity rate.
func (s *State) Rate(now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tuning.Rate(s.mode, s.energy, now)
}

// DailyReset clears the daily counters and partially restores energy for a
// drained agent. Runs once per calendar day.
func (s *State) DailyReset(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastReset.IsZero() && s.lastReset.YearDay() == now.YearDay() && s.lastReset.Year() == now.Year() {
		return
	}
	s.lastReset = now
	s.interactionsToday = 0
	s.actionsToday = 0

	if s.energy < 50 {
		s.energy += 20 + s.randFn()*10
		if s.energy > 100 {
			s.energy = 100
		}
	}
	if s.randFn() < 0.3 {
		s.mood = MoodNeutral
	}
	s.mode = DeriveMode(s.mood, s.energy, BucketOf(now), s.focused)
}

// Snapshot returns a copy of the current state for metrics and status output.
func (s *State) Snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:           s.id,
		Mood:         s.mood,
		Energy:       s.energy,
		Mode:         s.mode,
		Online:       s.online,
		LastActionAt: s.lastActionAt,
		Rate:         s.tuning.Rate(s.mode, s.energy, now),
	}
}

// Energy returns the current energy level.
func (s *State) Energy() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.energy
}

// Mood returns the current mood.
func (s *State) Mood() Mood {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mood
}

// Mode returns the current activity mode.
func (s *State) Mode() ActivityMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}
