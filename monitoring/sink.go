// Package monitoring publishes scheduler observability snapshots. The sink is
// optional everywhere it is consumed; NopSink is a valid implementation.
package monitoring

import (
	"chorus/agent"
	"chorus/engine"
)

// Sink receives periodic snapshots of per-agent state and engine activity.
type Sink interface {
	// ObserveAgents records the state of every managed agent.
	ObserveAgents(snapshots []agent.Snapshot)
	// ObserveEngine records task engine counters and queue depths.
	ObserveEngine(stats engine.Stats)
}

// NopSink discards all observations.
type NopSink struct{}

func (NopSink) ObserveAgents([]agent.Snapshot) {}

func (NopSink) ObserveEngine(engine.Stats) {}
