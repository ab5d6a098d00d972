package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateAlwaysWithinBounds(t *testing.T) {
	tuning := testTuning()

	modes := []ActivityMode{ModeNormal, ModeEnergetic, ModeCalm, ModeSleepy, ModeSocial, ModeFocused}
	energies := []float64{0, 0.001, 5, 19.99, 20, 50, 99.9, 100}

	for _, mode := range modes {
		for _, energy := range energies {
			for hour := 0; hour < 24; hour++ {
				at := time.Date(2025, 3, 10, hour, 0, 0, 0, time.UTC)
				rate := tuning.Rate(mode, energy, at)
				require.GreaterOrEqual(t, rate, tuning.MinRate,
					"mode=%s energy=%.2f hour=%d", mode, energy, hour)
				require.LessOrEqual(t, rate, tuning.MaxRate,
					"mode=%s energy=%.2f hour=%d", mode, energy, hour)
			}
		}
	}
}

func TestRateMonotonicInEnergy(t *testing.T) {
	tuning := testTuning()
	at := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	prev := 0.0
	for energy := 0.0; energy <= 100; energy += 5 {
		rate := tuning.Rate(ModeNormal, energy, at)
		require.GreaterOrEqual(t, rate, prev, "rate must not drop as energy rises")
		prev = rate
	}
}

func TestRateModeOrdering(t *testing.T) {
	tuning := testTuning()
	// Wide open bounds so the underlying multipliers are visible.
	tuning.MinRate = 0
	tuning.MaxRate = 1

	at := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	social := tuning.Rate(ModeSocial, 80, at)
	energetic := tuning.Rate(ModeEnergetic, 80, at)
	normal := tuning.Rate(ModeNormal, 80, at)
	focused := tuning.Rate(ModeFocused, 80, at)
	calm := tuning.Rate(ModeCalm, 80, at)
	sleepy := tuning.Rate(ModeSleepy, 80, at)

	assert.Greater(t, social, energetic)
	assert.Greater(t, energetic, normal)
	assert.Greater(t, normal, focused)
	assert.Greater(t, focused, calm)
	assert.Greater(t, calm, sleepy)
}

func TestRateTimeMultiplier(t *testing.T) {
	tuning := testTuning()
	tuning.MinRate = 0
	tuning.MaxRate = 1

	morning := tuning.Rate(ModeNormal, 80, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	night := tuning.Rate(ModeNormal, 80, time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC))

	assert.InDelta(t, 0.35*1.2*0.8, morning, 0.0001)
	assert.InDelta(t, 0.35*0.5*0.8, night, 0.0001)
}

func TestEnergyFactorFloor(t *testing.T) {
	assert.Equal(t, energyEpsilon, energyFactor(0))
	assert.Equal(t, energyEpsilon, energyFactor(1))
	assert.Equal(t, 0.5, energyFactor(50))
	assert.Equal(t, 1.0, energyFactor(100))
	assert.Equal(t, 1.0, energyFactor(150))
}
