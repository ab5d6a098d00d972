// Package sysmon samples host CPU and memory utilization and converts the
// smoothed load into an allowed worker count for the task engine.
package sysmon

import (
	"context"
	"sync"
	"time"

	"chorus/log"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Sample is one immutable resource utilization reading.
type Sample struct {
	CPUPercent float64
	MemPercent float64
	TakenAt    time.Time
}

// Probe reads current host utilization. Injectable for tests.
type Probe func() (Sample, error)

// hostProbe reads CPU and memory utilization via gopsutil.
func hostProbe() (Sample, error) {
	cpuPercent, err := cpu.Percent(0, false)
	if err != nil {
		return Sample{}, err
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Sample{}, err
	}

	s := Sample{MemPercent: vm.UsedPercent, TakenAt: time.Now()}
	if len(cpuPercent) > 0 {
		s.CPUPercent = cpuPercent[0]
	}
	return s, nil
}

// Monitor periodically samples host load and exposes an exponentially
// smoothed reading. Sampling failures are logged and the last known good
// sample is reused; the monitor never halts on a read error.
type Monitor struct {
	interval time.Duration
	alpha    float64
	probe    Probe

	mu        sync.RWMutex
	smoothed  Sample
	lastGood  Sample
	hasSample bool

	callbacks []func(Sample)

	// A flapping probe would otherwise warn on every sample.
	warnEvery *log.Every
}

// NewMonitor creates a resource monitor. interval is the sampling period and
// alpha the smoothing factor in (0, 1]; higher alpha weighs recent samples
// more.
func NewMonitor(interval time.Duration, alpha float64) *Monitor {
	return &Monitor{
		interval:  interval,
		alpha:     alpha,
		probe:     hostProbe,
		warnEvery: log.NewEvery(time.Minute),
	}
}

// SetProbe overrides the utilization probe. Intended for tests.
func (m *Monitor) SetProbe(p Probe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probe = p
}

// RegisterCallback adds a consumer notified with each smoothed sample.
// Callbacks run on the sampling goroutine and must not block.
func (m *Monitor) RegisterCallback(cb func(Sample)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// Run samples on the configured interval until ctx is cancelled. The sampling
// timeline is independent of the scheduling tick.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sampleOnce()
		}
	}
}

// sampleOnce takes one reading, folds it into the smoothed value, and fans
// it out to registered consumers.
func (m *Monitor) sampleOnce() {
	m.mu.RLock()
	probe := m.probe
	m.mu.RUnlock()

	s, err := probe()
	if err != nil {
		m.mu.Lock()
		if !m.hasSample {
			m.mu.Unlock()
			if m.warnEvery.ShouldLog() {
				log.WarningLog.Printf("resource sample failed with no prior reading: %v", err)
			}
			return
		}
		s = m.lastGood
		s.TakenAt = time.Now()
		m.mu.Unlock()
		if m.warnEvery.ShouldLog() {
			log.WarningLog.Printf("resource sample failed, reusing last reading: %v", err)
		}
	}

	m.mu.Lock()
	m.lastGood = s
	if !m.hasSample {
		m.smoothed = s
		m.hasSample = true
	} else {
		m.smoothed.CPUPercent = m.alpha*s.CPUPercent + (1-m.alpha)*m.smoothed.CPUPercent
		m.smoothed.MemPercent = m.alpha*s.MemPercent + (1-m.alpha)*m.smoothed.MemPercent
		m.smoothed.TakenAt = s.TakenAt
	}
	out := m.smoothed
	callbacks := m.callbacks
	m.mu.Unlock()

	for _, cb := range callbacks {
		cb(out)
	}
}

// Load returns the current smoothed sample. The second return is false until
// the first successful sample.
func (m *Monitor) Load() (Sample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.smoothed, m.hasSample
}
