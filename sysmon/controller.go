package sysmon

import (
	"sync"

	"chorus/log"
)

// ControllerConfig holds the hysteresis parameters for worker scaling.
type ControllerConfig struct {
	// HighWatermark and LowWatermark are smoothed-load percentages. The band
	// between them is dead: load inside it never changes the worker count.
	HighWatermark float64
	LowWatermark  float64
	// Streak is how many consecutive samples must sit beyond a watermark
	// before one scaling step fires.
	Streak int
	// MinWorkers (>= 1) and MaxWorkers bound the computed worker count.
	MinWorkers int
	MaxWorkers int
}

// Controller maps smoothed load to an allowed worker count using two
// thresholds with hysteresis, stepping one worker at a time. A sequence
// alternating between the watermarks resets both streaks and changes
// nothing.
type Controller struct {
	cfg ControllerConfig

	mu          sync.Mutex
	current     int
	aboveStreak int
	belowStreak int

	apply func(int)
}

// NewController creates a concurrency controller starting at MaxWorkers.
// apply receives every new worker count; typically engine.SetWorkerLimit.
func NewController(cfg ControllerConfig, apply func(int)) *Controller {
	if cfg.MinWorkers < 1 {
		cfg.MinWorkers = 1
	}
	if cfg.MaxWorkers < cfg.MinWorkers {
		cfg.MaxWorkers = cfg.MinWorkers
	}
	if cfg.Streak < 1 {
		cfg.Streak = 1
	}
	return &Controller{
		cfg:     cfg,
		current: cfg.MaxWorkers,
		apply:   apply,
	}
}

// OnSample consumes one smoothed reading. Register it with the monitor.
func (c *Controller) OnSample(s Sample) {
	load := s.CPUPercent
	if s.MemPercent > load {
		load = s.MemPercent
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case load > c.cfg.HighWatermark:
		c.belowStreak = 0
		c.aboveStreak++
		if c.aboveStreak >= c.cfg.Streak {
			c.aboveStreak = 0
			c.step(-1, load)
		}
	case load < c.cfg.LowWatermark:
		c.aboveStreak = 0
		c.belowStreak++
		if c.belowStreak >= c.cfg.Streak {
			c.belowStreak = 0
			c.step(+1, load)
		}
	default:
		c.aboveStreak = 0
		c.belowStreak = 0
	}
}

// step moves the worker count by delta within the configured bounds.
// Caller holds c.mu.
func (c *Controller) step(delta int, load float64) {
	next := c.current + delta
	if next < c.cfg.MinWorkers {
		next = c.cfg.MinWorkers
	}
	if next > c.cfg.MaxWorkers {
		next = c.cfg.MaxWorkers
	}
	if next == c.current {
		return
	}

	c.current = next
	log.InfoLog.Printf("concurrency controller: load %.1f%%, workers -> %d", load, next)
	if c.apply != nil {
		c.apply(next)
	}
}

// Workers returns the current allowed worker count.
func (c *Controller) Workers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
