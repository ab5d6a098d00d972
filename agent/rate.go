package agent

import (
	"time"

	"chorus/config"
)

// energyEpsilon keeps a fully drained agent at a nonzero but negligible
// activity rate.
const energyEpsilon = 0.05

// modeBaseRate is the per-mode base activity rate before time-of-day and
// energy modulation.
var modeBaseRate = map[ActivityMode]float64{
	ModeNormal:    0.35,
	ModeEnergetic: 0.455,
	ModeCalm:      0.28,
	ModeSleepy:    0.14,
	ModeSocial:    0.525,
	ModeFocused:   0.315,
}

// Tuning carries the configured parameters that shape agent behavior.
type Tuning struct {
	DecayPerHour    float64
	InteractionGain float64
	MinRate         float64
	MaxRate         float64
	Morning         float64
	Afternoon       float64
	Evening         float64
	Night           float64
}

// TuningFromConfig extracts the agent tuning from the loaded configuration.
func TuningFromConfig(cfg *config.Config) Tuning {
	return Tuning{
		DecayPerHour:    cfg.EnergyDecayPerHour,
		InteractionGain: cfg.InteractionEnergyGain,
		MinRate:         cfg.MinActivityRate,
		MaxRate:         cfg.MaxActivityRate,
		Morning:         cfg.TimeMultipliers.Morning,
		Afternoon:       cfg.TimeMultipliers.Afternoon,
		Evening:         cfg.TimeMultipliers.Evening,
		Night:           cfg.TimeMultipliers.Night,
	}
}

// timeMultiplier returns the configured multiplier for the given bucket.
func (t Tuning) timeMultiplier(bucket TimeBucket) float64 {
	switch bucket {
	case Morning:
		return t.Morning
	case Afternoon:
		return t.Afternoon
	case Evening:
		return t.Evening
	default:
		return t.Night
	}
}

// Rate computes the activity rate for the given mode, energy, and wall-clock
// time. It is a pure function; the clamp to [MinRate, MaxRate] here is the
// single enforcement point for the configured activity-rate range.
func (t Tuning) Rate(mode ActivityMode, energy float64, now time.Time) float64 {
	base := modeBaseRate[mode]
	rate := base * t.timeMultiplier(BucketOf(now)) * energyFactor(energy)

	if rate < t.MinRate {
		return t.MinRate
	}
	if rate > t.MaxRate {
		return t.MaxRate
	}
	return rate
}

// energyFactor is monotonically non-decreasing in energy and never below
// energyEpsilon.
func energyFactor(energy float64) float64 {
	f := energy / 100.0
	if f < energyEpsilon {
		return energyEpsilon
	}
	if f > 1 {
		return 1
	}
	return f
}
