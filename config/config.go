package config

import (
	"fmt"
	"os"
	"time"

	"chorus/log"

	"gopkg.in/yaml.v3"
)

// TimeMultipliers scale the activity rate by time of day.
type TimeMultipliers struct {
	Morning   float64 `yaml:"morning"`
	Afternoon float64 `yaml:"afternoon"`
	Evening   float64 `yaml:"evening"`
	Night     float64 `yaml:"night"`
}

// Config holds all scheduler settings. It is read once at startup;
// hot reload is not supported.
type Config struct {
	// CheckIntervalSeconds is how often the arbiter evaluates the agent pool.
	CheckIntervalSeconds int `yaml:"check_interval_seconds"`
	// CooldownMinSeconds and CooldownMaxSeconds bound the randomized
	// per-agent cooldown drawn after each spontaneous action.
	CooldownMinSeconds int `yaml:"cooldown_min_seconds"`
	CooldownMaxSeconds int `yaml:"cooldown_max_seconds"`

	// MinActivityRate and MaxActivityRate clamp every computed activity rate.
	MinActivityRate float64 `yaml:"min_activity_rate"`
	MaxActivityRate float64 `yaml:"max_activity_rate"`

	// EnergyDecayPerHour is subtracted from agent energy per idle hour.
	EnergyDecayPerHour float64 `yaml:"energy_decay_per_hour"`
	// InteractionEnergyGain is added to agent energy per user interaction.
	InteractionEnergyGain float64 `yaml:"interaction_energy_gain"`
	// FailureEnergyPenalty is subtracted when an agent's action fails
	// terminally. Must be smaller than InteractionEnergyGain.
	FailureEnergyPenalty float64 `yaml:"failure_energy_penalty"`

	TimeMultipliers TimeMultipliers `yaml:"time_multipliers"`

	// Worker pool bounds for the task engine.
	MaxWorkers int `yaml:"max_workers"`
	MinWorkers int `yaml:"min_workers"`

	// HighWatermark and LowWatermark are smoothed-load percentages.
	// WatermarkStreak consecutive samples beyond a watermark trigger one
	// scaling step.
	HighWatermark   float64 `yaml:"high_watermark"`
	LowWatermark    float64 `yaml:"low_watermark"`
	WatermarkStreak int     `yaml:"watermark_streak"`

	// SampleIntervalSeconds is the resource monitor's sampling period,
	// independent of the scheduling tick.
	SampleIntervalSeconds int `yaml:"sample_interval_seconds"`
	// SmoothingAlpha is the exponential smoothing factor in (0, 1].
	SmoothingAlpha float64 `yaml:"smoothing_alpha"`

	// MaxAttempts is the retry ceiling per task; a task runs at most
	// MaxAttempts+1 times.
	MaxAttempts int `yaml:"max_attempts"`
	// BaseDelayMS seeds the exponential retry backoff.
	BaseDelayMS int `yaml:"base_delay_ms"`
	// MaxDelayMS caps the retry backoff.
	MaxDelayMS int `yaml:"max_delay_ms"`

	// ActionPriority is the priority of spontaneous-action tasks.
	ActionPriority int `yaml:"action_priority"`

	// Rotation keeps between MinOnlineAgents and MaxOnlineAgents agents
	// online, swapping drained agents for rested ones on the interval.
	RotationEnabled         bool `yaml:"rotation_enabled"`
	RotationIntervalSeconds int  `yaml:"rotation_interval_seconds"`
	MinOnlineAgents         int  `yaml:"min_online_agents"`
	MaxOnlineAgents         int  `yaml:"max_online_agents"`

	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint. Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		CheckIntervalSeconds:  60,
		CooldownMinSeconds:    300,
		CooldownMaxSeconds:    1800,
		MinActivityRate:       0.1,
		MaxActivityRate:       0.6,
		EnergyDecayPerHour:    2.0,
		InteractionEnergyGain: 5.0,
		FailureEnergyPenalty:  2.0,
		TimeMultipliers: TimeMultipliers{
			Morning:   1.2,
			Afternoon: 1.0,
			Evening:   0.8,
			Night:     0.5,
		},
		MaxWorkers:              8,
		MinWorkers:              1,
		HighWatermark:           80.0,
		LowWatermark:            40.0,
		WatermarkStreak:         5,
		SampleIntervalSeconds:   10,
		SmoothingAlpha:          0.3,
		MaxAttempts:             3,
		BaseDelayMS:             1000,
		MaxDelayMS:              60000,
		ActionPriority:          5,
		RotationEnabled:         false,
		RotationIntervalSeconds: 1800,
		MinOnlineAgents:         2,
		MaxOnlineAgents:         4,
		MetricsAddr:             "",
	}
}

// Load reads the configuration from the given path. A missing file yields the
// defaults; a present but invalid file is a fatal startup error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.WarningLog.Printf("config file %s not found, using defaults", path)
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks range invariants. Any violation is fatal at startup.
func (c *Config) Validate() error {
	if c.CheckIntervalSeconds <= 0 {
		return fmt.Errorf("invalid config: check_interval_seconds must be positive, got %d", c.CheckIntervalSeconds)
	}
	if c.CooldownMinSeconds < 0 || c.CooldownMaxSeconds < c.CooldownMinSeconds {
		return fmt.Errorf("invalid config: cooldown range [%d, %d]", c.CooldownMinSeconds, c.CooldownMaxSeconds)
	}
	if c.MinActivityRate < 0 || c.MaxActivityRate > 1 || c.MinActivityRate > c.MaxActivityRate {
		return fmt.Errorf("invalid config: activity rate range [%.2f, %.2f]", c.MinActivityRate, c.MaxActivityRate)
	}
	if c.EnergyDecayPerHour < 0 {
		return fmt.Errorf("invalid config: energy_decay_per_hour must be non-negative, got %.2f", c.EnergyDecayPerHour)
	}
	if c.InteractionEnergyGain <= 0 {
		return fmt.Errorf("invalid config: interaction_energy_gain must be positive, got %.2f", c.InteractionEnergyGain)
	}
	if c.FailureEnergyPenalty < 0 || c.FailureEnergyPenalty >= c.InteractionEnergyGain {
		return fmt.Errorf("invalid config: failure_energy_penalty %.2f must be smaller than interaction_energy_gain %.2f",
			c.FailureEnergyPenalty, c.InteractionEnergyGain)
	}
	if c.MinWorkers < 1 {
		return fmt.Errorf("invalid config: min_workers must be at least 1, got %d", c.MinWorkers)
	}
	if c.MaxWorkers < c.MinWorkers {
		return fmt.Errorf("invalid config: max_workers %d below min_workers %d", c.MaxWorkers, c.MinWorkers)
	}
	if c.LowWatermark < 0 || c.HighWatermark > 100 || c.LowWatermark >= c.HighWatermark {
		return fmt.Errorf("invalid config: watermarks [%.1f, %.1f]", c.LowWatermark, c.HighWatermark)
	}
	if c.WatermarkStreak < 1 {
		return fmt.Errorf("invalid config: watermark_streak must be at least 1, got %d", c.WatermarkStreak)
	}
	if c.SampleIntervalSeconds <= 0 {
		return fmt.Errorf("invalid config: sample_interval_seconds must be positive, got %d", c.SampleIntervalSeconds)
	}
	if c.SmoothingAlpha <= 0 || c.SmoothingAlpha > 1 {
		return fmt.Errorf("invalid config: smoothing_alpha must be in (0, 1], got %.2f", c.SmoothingAlpha)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("invalid config: max_attempts must be non-negative, got %d", c.MaxAttempts)
	}
	if c.BaseDelayMS <= 0 || c.MaxDelayMS < c.BaseDelayMS {
		return fmt.Errorf("invalid config: backoff delays [%dms, %dms]", c.BaseDelayMS, c.MaxDelayMS)
	}
	if c.RotationEnabled {
		if c.RotationIntervalSeconds <= 0 {
			return fmt.Errorf("invalid config: rotation_interval_seconds must be positive, got %d", c.RotationIntervalSeconds)
		}
		if c.MinOnlineAgents < 1 {
			return fmt.Errorf("invalid config: min_online_agents must be at least 1, got %d", c.MinOnlineAgents)
		}
		if c.MaxOnlineAgents < c.MinOnlineAgents {
			return fmt.Errorf("invalid config: max_online_agents %d below min_online_agents %d", c.MaxOnlineAgents, c.MinOnlineAgents)
		}
	}
	for name, m := range map[string]float64{
		"morning":   c.TimeMultipliers.Morning,
		"afternoon": c.TimeMultipliers.Afternoon,
		"evening":   c.TimeMultipliers.Evening,
		"night":     c.TimeMultipliers.Night,
	} {
		if m < 0 {
			return fmt.Errorf("invalid config: time multiplier %s must be non-negative, got %.2f", name, m)
		}
	}
	return nil
}

// CheckInterval returns the scheduling tick period.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

// CooldownRange returns the cooldown bounds as durations.
func (c *Config) CooldownRange() (min, max time.Duration) {
	return time.Duration(c.CooldownMinSeconds) * time.Second,
		time.Duration(c.CooldownMaxSeconds) * time.Second
}

// RotationInterval returns the online-pool rotation period.
func (c *Config) RotationInterval() time.Duration {
	return time.Duration(c.RotationIntervalSeconds) * time.Second
}

// SampleInterval returns the resource sampling period.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleIntervalSeconds) * time.Second
}

// BaseDelay returns the initial retry backoff delay.
func (c *Config) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the retry backoff cap.
func (c *Config) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMS) * time.Millisecond
}
