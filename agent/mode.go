package agent

import "time"

// Mood represents an agent's emotional state.
type Mood int

const (
	MoodNeutral Mood = iota
	MoodHappy
	MoodExcited
	MoodTired
	MoodMelancholy
)

// String returns the string representation of the mood.
func (m Mood) String() string {
	switch m {
	case MoodHappy:
		return "Happy"
	case MoodExcited:
		return "Excited"
	case MoodTired:
		return "Tired"
	case MoodMelancholy:
		return "Melancholy"
	case MoodNeutral:
		return "Neutral"
	default:
		return "Unknown"
	}
}

// ActivityMode represents an agent's derived behavioral mode.
type ActivityMode int

const (
	ModeNormal ActivityMode = iota
	ModeEnergetic
	ModeCalm
	ModeSleepy
	ModeSocial
	ModeFocused
)

// String returns the string representation of the activity mode.
func (m ActivityMode) String() string {
	switch m {
	case ModeNormal:
		return "Normal"
	case ModeEnergetic:
		return "Energetic"
	case ModeCalm:
		return "Calm"
	case ModeSleepy:
		return "Sleepy"
	case ModeSocial:
		return "Social"
	case ModeFocused:
		return "Focused"
	default:
		return "Unknown"
	}
}

// TimeBucket partitions the day into four activity periods.
type TimeBucket int

const (
	Morning   TimeBucket = iota // 06:00-12:00
	Afternoon                   // 12:00-18:00
	Evening                     // 18:00-22:00
	Night                       // 22:00-06:00
)

// String returns the string representation of the time bucket.
func (b TimeBucket) String() string {
	switch b {
	case Morning:
		return "Morning"
	case Afternoon:
		return "Afternoon"
	case Evening:
		return "Evening"
	case Night:
		return "Night"
	default:
		return "Unknown"
	}
}

// BucketOf returns the time bucket containing t.
func BucketOf(t time.Time) TimeBucket {
	switch hour := t.Hour(); {
	case hour >= 6 && hour < 12:
		return Morning
	case hour >= 12 && hour < 18:
		return Afternoon
	case hour >= 18 && hour < 22:
		return Evening
	default:
		return Night
	}
}

// DeriveMode maps (mood, energy, time bucket, focus override) to an activity
// mode. The rule order is a fixed policy, not a tunable: reordering the rules
// changes scheduling behavior, so first match always wins in exactly this
// sequence.
//
//  1. explicit focus override     -> Focused
//  2. energy < 20                 -> Sleepy
//  3. Melancholy and energy < 50  -> Calm
//  4. night and energy < 40       -> Sleepy
//  5. Excited and energy >= 60    -> Energetic
//  6. otherwise the bucket default: morning Energetic, afternoon Normal,
//     evening Social, night Calm.
// driftMood picks the mood an idle agent wanders toward: drained agents sink
// into Tired or Melancholy, night hours pull toward Tired, and long quiet
// daytime stretches settle back to Neutral.
func driftMood(energy float64, bucket TimeBucket, draw float64) Mood {
	switch {
	case energy < 30:
		if draw < 0.5 {
			return MoodTired
		}
		return MoodMelancholy
	case bucket == Night:
		return MoodTired
	default:
		return MoodNeutral
	}
}

func DeriveMode(mood Mood, energy float64, bucket TimeBucket, focused bool) ActivityMode {
	switch {
	case focused:
		return ModeFocused
	case energy < 20:
		return ModeSleepy
	case mood == MoodMelancholy && energy < 50:
		return ModeCalm
	case bucket == Night && energy < 40:
		return ModeSleepy
	case mood == MoodExcited && energy >= 60:
		return ModeEnergetic
	}

	switch bucket {
	case Morning:
		return ModeEnergetic
	case Afternoon:
		return ModeNormal
	case Evening:
		return ModeSocial
	default:
		return ModeCalm
	}
}
