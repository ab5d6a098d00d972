package engine

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"chorus/log"
)

// Config contains the task engine settings.
type Config struct {
	// MaxWorkers is the size of the worker pool and the upper bound on the
	// dynamic concurrency limit.
	MaxWorkers int
	// MinWorkers is the lower bound on the dynamic concurrency limit.
	MinWorkers int
	// Backoff computes retry delays. Defaults to exponential backoff with a
	// one second base when nil.
	Backoff BackoffStrategy
	// TaskTimeout bounds a single payload execution. Zero means no timeout.
	TaskTimeout time.Duration
}

// Stats is a point-in-time view of engine activity. Retries and
// TerminalFailures are tracked separately so operators can tell slow-but-
// working apart from broken.
type Stats struct {
	Submitted        uint64
	Succeeded        uint64
	Retries          uint64
	TerminalFailures uint64
	Cancelled        uint64
	Queued           int
	Delayed          int
	Running          int
	WorkerLimit      int
}

// Engine executes prioritized tasks on a bounded worker pool. The number of
// workers permitted to start new tasks follows the dynamic limit; in-flight
// tasks are never pre-empted.
type Engine struct {
	cfg Config

	mu      sync.Mutex
	ready   readyQueue
	delayed delayedQueue

	workChan chan *Task
	wake     chan struct{}

	limit   atomic.Int32
	running atomic.Int32
	closed  atomic.Bool
	started atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	submitted        atomic.Uint64
	succeeded        atomic.Uint64
	retries          atomic.Uint64
	terminalFailures atomic.Uint64
	cancelled        atomic.Uint64
}

// New creates a task engine. Workers do not run until Start is called.
func New(cfg Config) *Engine {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.MinWorkers <= 0 {
		cfg.MinWorkers = 1
	}
	if cfg.MinWorkers > cfg.MaxWorkers {
		cfg.MinWorkers = cfg.MaxWorkers
	}
	if cfg.Backoff == nil {
		cfg.Backoff = NewExponentialBackoff(time.Second, 5*time.Minute)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:      cfg,
		workChan: make(chan *Task, cfg.MaxWorkers),
		wake:     make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	e.limit.Store(int32(cfg.MaxWorkers))
	return e
}

// Start launches the dispatcher and the worker pool.
func (e *Engine) Start() {
	if !e.started.CompareAndSwap(false, true) {
		return
	}

	log.InfoLog.Printf("task engine starting with %d workers (limit %d)", e.cfg.MaxWorkers, e.limit.Load())

	e.wg.Add(1)
	go e.dispatcher()

	for i := 0; i < e.cfg.MaxWorkers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
}

// Submit enqueues a payload with the given priority and retry ceiling. It
// never blocks; the only failure mode is submission after shutdown.
func (e *Engine) Submit(priority, maxAttempts int, payload Payload) (*Handle, error) {
	task := newTask(priority, maxAttempts, payload, time.Now())
	task.handle.engine = e

	// The closed check shares the queue mutex with Shutdown's final sweep:
	// a submission either fails fast or its task is visible to that sweep,
	// so an accepted handle always resolves.
	e.mu.Lock()
	if e.closed.Load() {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	e.submitted.Add(1)
	heap.Push(&e.ready, task)
	e.mu.Unlock()

	e.nudge()
	log.DebugLog.Printf("task %s submitted (priority %d)", task.ID, priority)
	return task.handle, nil
}

// SetWorkerLimit adjusts how many workers may start new tasks. The value is
// clamped to [MinWorkers, MaxWorkers] and takes effect on the next dispatch,
// never by pre-empting running tasks.
func (e *Engine) SetWorkerLimit(n int) {
	if n < e.cfg.MinWorkers {
		n = e.cfg.MinWorkers
	}
	if n > e.cfg.MaxWorkers {
		n = e.cfg.MaxWorkers
	}

	old := e.limit.Swap(int32(n))
	if int(old) != n {
		log.InfoLog.Printf("worker limit %d -> %d", old, n)
		e.nudge()
	}
}

// WorkerLimit returns the current concurrency limit.
func (e *Engine) WorkerLimit() int {
	return int(e.limit.Load())
}

// Stats returns current counters and queue depths.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	queued, delayed := e.ready.Len(), e.delayed.Len()
	e.mu.Unlock()

	return Stats{
		Submitted:        e.submitted.Load(),
		Succeeded:        e.succeeded.Load(),
		Retries:          e.retries.Load(),
		TerminalFailures: e.terminalFailures.Load(),
		Cancelled:        e.cancelled.Load(),
		Queued:           queued,
		Delayed:          delayed,
		Running:          int(e.running.Load()),
		WorkerLimit:      int(e.limit.Load()),
	}
}

// Shutdown closes the queue, cancels in-flight payload contexts, and waits
// for the workers to drain. Tasks still waiting in the queues resolve with
// ErrEngineClosed.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed.CompareAndSwap(false, true) {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	e.cancel()
	e.nudge()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	// The dispatcher closed workChan on exit; resolve anything it had
	// handed over that no worker claimed. A never-started engine has no
	// dispatcher and nothing in flight.
	if e.started.Load() {
		for t := range e.workChan {
			t.handle.resolve(ErrEngineClosed)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.ready.items {
		if !t.cancelled {
			t.handle.resolve(ErrEngineClosed)
		}
	}
	for _, t := range e.delayed.items {
		if !t.cancelled {
			t.handle.resolve(ErrEngineClosed)
		}
	}
	e.ready.items = nil
	e.delayed.items = nil

	log.InfoLog.Printf("task engine stopped")
	return nil
}

// nudge wakes the dispatcher without blocking.
func (e *Engine) nudge() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// cancelTask withdraws a task that has not been claimed by a worker.
func (e *Engine) cancelTask(t *Task) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t.cancelled || t.status == StatusRunning || t.status == StatusSucceeded || t.status == StatusFailedTerminal {
		return
	}
	t.cancelled = true
	e.cancelled.Add(1)
	t.handle.resolve(ErrTaskCancelled)
	log.DebugLog.Printf("task %s cancelled before start", t.ID)
}

// dispatcher promotes due retries and hands ready tasks to workers while the
// concurrency limit allows new starts.
func (e *Engine) dispatcher() {
	defer e.wg.Done()
	defer close(e.workChan)

	for {
		next := e.dispatchReady()

		var timer *time.Timer
		var due <-chan time.Time
		if next > 0 {
			timer = time.NewTimer(next)
			due = timer.C
		}

		select {
		case <-e.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-e.wake:
		case <-due:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// dispatchReady drains eligible work and returns the wait until the next
// delayed task is due, or 0 when there is none.
func (e *Engine) dispatchReady() time.Duration {
	now := time.Now()

	e.mu.Lock()
	for {
		t := e.delayed.popDue(now)
		if t == nil {
			break
		}
		if t.cancelled {
			continue
		}
		t.status = StatusQueued
		heap.Push(&e.ready, t)
	}

	var batch []*Task
	for e.ready.Len() > 0 && int(e.running.Load())+len(batch) < int(e.limit.Load()) {
		t := heap.Pop(&e.ready).(*Task)
		if t.cancelled {
			continue
		}
		t.status = StatusRunning
		batch = append(batch, t)
	}

	var wait time.Duration
	if head := e.delayed.peek(); head != nil {
		wait = head.notBefore.Sub(now)
		if wait <= 0 {
			wait = time.Millisecond
		}
	}
	e.mu.Unlock()

	for i, t := range batch {
		e.running.Add(1)
		select {
		case e.workChan <- t:
		case <-e.ctx.Done():
			// Batch tasks were already popped off the queues, so Shutdown's
			// sweep cannot see them; resolve the unhanded remainder here.
			e.running.Add(-1)
			for _, dropped := range batch[i:] {
				dropped.handle.resolve(ErrEngineClosed)
			}
			return 0
		}
	}
	return wait
}

// worker executes tasks handed over by the dispatcher.
func (e *Engine) worker(id int) {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case task, ok := <-e.workChan:
			if !ok {
				return
			}
			e.execute(id, task)
			e.running.Add(-1)
			e.nudge()
		}
	}
}

// execute runs one payload attempt and routes the outcome.
func (e *Engine) execute(workerID int, task *Task) {
	ctx := e.ctx
	if e.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.TaskTimeout)
		defer cancel()
	}

	log.DebugLog.Printf("worker %d: task %s attempt %d/%d", workerID, task.ID, task.Attempt+1, task.MaxAttempts+1)
	err := task.Payload(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err == nil {
		task.status = StatusSucceeded
		e.succeeded.Add(1)
		task.handle.resolve(nil)
		return
	}

	task.lastErr = err
	if task.Attempt < task.MaxAttempts {
		task.Attempt++
		task.status = StatusFailedRetryable
		delay := e.cfg.Backoff.NextDelay(task.Attempt - 1)
		task.notBefore = time.Now().Add(delay)
		heap.Push(&e.delayed, task)
		e.retries.Add(1)
		log.InfoLog.Printf("task %s failed, retry %d/%d in %v: %v", task.ID, task.Attempt, task.MaxAttempts, delay, err)
		return
	}

	task.status = StatusFailedTerminal
	e.terminalFailures.Add(1)
	log.ErrorLog.Printf("task %s failed terminally after %d attempts: %v", task.ID, task.Attempt+1, err)
	task.handle.resolve(&TaskError{TaskID: task.ID, Attempts: task.Attempt + 1, Err: err})
}
