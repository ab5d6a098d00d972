// Package arbiter coordinates spontaneous actions across the agent pool. On
// every scheduling tick it evaluates each agent's activity rate and selects
// at most one agent to act, so two agents never speak at once.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"chorus/agent"
	"chorus/config"
	"chorus/engine"
	"chorus/log"
	"chorus/monitoring"
)

// ActionKind names the spontaneous action requested from the executor.
type ActionKind string

// ActionSpeak is a spontaneous utterance, the only action kind the scheduler
// currently requests. The executor treats it as opaque.
const ActionSpeak ActionKind = "speak"

// ActionExecutor performs an agent's spontaneous action. It runs as a task
// payload and must observe ctx for cooperative cancellation.
type ActionExecutor interface {
	Execute(ctx context.Context, agentID string, kind ActionKind) error
}

// Arbitrator owns the agent pool and runs the scheduling tick for the process
// lifetime. It is the only writer of agent state besides the interaction
// entry point; individual states serialize those two paths internally.
type Arbitrator struct {
	cfg      *config.Config
	tuning   agent.Tuning
	engine   *engine.Engine
	executor ActionExecutor
	sink     monitoring.Sink

	mu           sync.RWMutex
	agents       map[string]*agent.State
	rng          Rand
	lastRotation time.Time
}

// rotationSwapMargin is how much better rested an offline agent must be
// before rotation swaps it in for the most drained online one.
const rotationSwapMargin = 15.0

// candidate is an agent that passed its Bernoulli trial on this tick.
type candidate struct {
	state *agent.State
	rate  float64
}

// New creates an arbitrator. A nil sink defaults to the no-op sink.
func New(cfg *config.Config, eng *engine.Engine, executor ActionExecutor, sink monitoring.Sink) *Arbitrator {
	if sink == nil {
		sink = monitoring.NopSink{}
	}
	return &Arbitrator{
		cfg:      cfg,
		tuning:   agent.TuningFromConfig(cfg),
		engine:   eng,
		executor: executor,
		sink:     sink,
		agents:   make(map[string]*agent.State),
		rng:      systemRand{},
	}
}

// SetRandSource overrides the randomness source. Intended for deterministic
// tests.
func (a *Arbitrator) SetRandSource(r Rand) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rng = r
}

// Register adds an agent to the pool and returns its state. Registering an
// existing ID returns the current state unchanged.
func (a *Arbitrator) Register(id string) *agent.State {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.agents[id]; ok {
		return s
	}
	s := agent.NewState(id, a.tuning)
	a.agents[id] = s
	log.InfoLog.Printf("agent %s registered", id)
	return s
}

// Get returns the state for the given agent ID.
func (a *Arbitrator) Get(id string) (*agent.State, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.agents[id]
	return s, ok
}

// OnInteraction is the entry point for the transport collaborator: it records
// a user interaction with the given agent.
func (a *Arbitrator) OnInteraction(id string, now time.Time) error {
	s, ok := a.Get(id)
	if !ok {
		return fmt.Errorf("unknown agent %s", id)
	}
	s.OnInteraction(now)
	return nil
}

// SetOnline toggles an agent's arbitration eligibility. Offline agents keep
// decaying but are never selected.
func (a *Arbitrator) SetOnline(id string, online bool) error {
	s, ok := a.Get(id)
	if !ok {
		return fmt.Errorf("unknown agent %s", id)
	}
	s.SetOnline(online)
	log.InfoLog.Printf("agent %s online=%v", id, online)
	return nil
}

// Run executes the scheduling tick on the configured interval until ctx is
// cancelled. The arbitrator has no terminal state of its own.
func (a *Arbitrator) Run(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.CheckInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Tick(time.Now())
		}
	}
}

// Tick runs one scheduling pass: decay all agents, run the per-agent
// Bernoulli trials, and submit at most one action. Selecting nobody is the
// expected outcome of most ticks and is never an error.
func (a *Arbitrator) Tick(now time.Time) {
	states := a.allStates()

	for _, s := range states {
		s.DailyReset(now)
		s.Tick(now)
	}
	a.maybeRotate(states, now)

	a.mu.RLock()
	rng := a.rng
	a.mu.RUnlock()

	var candidates []candidate
	for _, s := range states {
		if !s.Online() || s.InCooldown(now) {
			continue
		}
		rate := s.Rate(now)
		// Independent trial per agent, not one global draw.
		if rng.Float64() < rate {
			candidates = append(candidates, candidate{state: s, rate: rate})
		}
	}
	if log.IsDebugEnabled() {
		log.DebugLog.Printf("tick: %d agents, %d passed their trial", len(states), len(candidates))
	}
	if len(candidates) == 0 {
		a.publish(states, now)
		return
	}

	chosen := selectOne(candidates)
	a.submit(chosen, now, rng)
	a.publish(states, now)
}

// maybeRotate runs the online-pool rotation when it is enabled and due: the
// pool is brought inside [MinOnlineAgents, MaxOnlineAgents], shedding the
// most drained agents first and recalling the best rested, and one drained
// online agent is swapped for a clearly better-rested offline one. Rotation
// only flips the Online flag; eligibility rules are untouched.
func (a *Arbitrator) maybeRotate(states []*agent.State, now time.Time) {
	if !a.cfg.RotationEnabled {
		return
	}

	a.mu.Lock()
	if !a.lastRotation.IsZero() && now.Sub(a.lastRotation) < a.cfg.RotationInterval() {
		a.mu.Unlock()
		return
	}
	a.lastRotation = now
	a.mu.Unlock()

	var online, offline []*agent.State
	for _, s := range states {
		if s.Online() {
			online = append(online, s)
		} else {
			offline = append(offline, s)
		}
	}
	sort.Slice(online, func(i, j int) bool {
		if online[i].Energy() != online[j].Energy() {
			return online[i].Energy() < online[j].Energy()
		}
		return online[i].ID() < online[j].ID()
	})
	sort.Slice(offline, func(i, j int) bool {
		if offline[i].Energy() != offline[j].Energy() {
			return offline[i].Energy() > offline[j].Energy()
		}
		return offline[i].ID() < offline[j].ID()
	})

	for len(online) > a.cfg.MaxOnlineAgents {
		s := online[0]
		online = online[1:]
		s.SetOnline(false)
		log.InfoLog.Printf("rotation: agent %s offline, pool above %d", s.ID(), a.cfg.MaxOnlineAgents)
	}
	for len(online) < a.cfg.MinOnlineAgents && len(offline) > 0 {
		s := offline[0]
		offline = offline[1:]
		s.SetOnline(true)
		online = append(online, s)
		log.InfoLog.Printf("rotation: agent %s online, pool below %d", s.ID(), a.cfg.MinOnlineAgents)
	}

	if len(online) > 0 && len(offline) > 0 {
		drained, rested := online[0], offline[0]
		if rested.Energy() > drained.Energy()+rotationSwapMargin {
			drained.SetOnline(false)
			rested.SetOnline(true)
			log.InfoLog.Printf("rotation: agent %s rests, agent %s returns", drained.ID(), rested.ID())
		}
	}
}

// selectOne applies the deterministic tie-break: highest rate first, then
// lowest agent ID.
func selectOne(candidates []candidate) candidate {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].rate != candidates[j].rate {
			return candidates[i].rate > candidates[j].rate
		}
		return candidates[i].state.ID() < candidates[j].state.ID()
	})
	return candidates[0]
}

// submit hands the chosen agent's action to the task engine. The action
// timestamp and the fresh cooldown are recorded synchronously with
// submission, not on completion, so a slow task cannot cause a burst.
func (a *Arbitrator) submit(c candidate, now time.Time, rng Rand) {
	id := c.state.ID()

	cooldownMin, cooldownMax := a.cfg.CooldownRange()
	cooldown := cooldownMin + time.Duration(rng.Float64()*float64(cooldownMax-cooldownMin))
	c.state.MarkAction(now, cooldown)

	handle, err := a.engine.Submit(a.cfg.ActionPriority, a.cfg.MaxAttempts, func(ctx context.Context) error {
		return a.executor.Execute(ctx, id, ActionSpeak)
	})
	if err != nil {
		log.ErrorLog.Printf("agent %s: action submission failed: %v", id, err)
		return
	}

	log.InfoLog.Printf("agent %s selected (rate %.2f), next cooldown %v", id, c.rate, cooldown)
	go a.watchOutcome(c.state, handle)
}

// watchOutcome applies the energy penalty when the action fails terminally.
// Mood is untouched and the action timestamp stands; the penalty only
// discourages rapid re-selection of a failing agent.
func (a *Arbitrator) watchOutcome(s *agent.State, handle *engine.Handle) {
	<-handle.Done()
	err := handle.Err()
	if err == nil {
		return
	}
	if errors.Is(err, engine.ErrTaskCancelled) || errors.Is(err, engine.ErrEngineClosed) {
		return
	}
	s.ApplyFailurePenalty(a.cfg.FailureEnergyPenalty)
	log.WarningLog.Printf("agent %s: action failed terminally, energy penalty applied: %v", s.ID(), err)
}

// publish pushes the tick's snapshots to the metrics sink.
func (a *Arbitrator) publish(states []*agent.State, now time.Time) {
	snapshots := make([]agent.Snapshot, 0, len(states))
	for _, s := range states {
		snapshots = append(snapshots, s.Snapshot(now))
	}
	a.sink.ObserveAgents(snapshots)
	a.sink.ObserveEngine(a.engine.Stats())
}

// Snapshots returns the current state of every agent, sorted by ID.
func (a *Arbitrator) Snapshots(now time.Time) []agent.Snapshot {
	states := a.allStates()
	snapshots := make([]agent.Snapshot, 0, len(states))
	for _, s := range states {
		snapshots = append(snapshots, s.Snapshot(now))
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].ID < snapshots[j].ID })
	return snapshots
}

// allStates copies the agent list out of the registry.
func (a *Arbitrator) allStates() []*agent.State {
	a.mu.RLock()
	defer a.mu.RUnlock()

	states := make([]*agent.State, 0, len(a.agents))
	for _, s := range a.agents {
		states = append(states, s)
	}
	return states
}
