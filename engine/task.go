package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrEngineClosed is returned by Submit after the engine has been shut down.
var ErrEngineClosed = errors.New("task engine closed")

// ErrTaskCancelled is reported by a handle whose task was cancelled before a
// worker claimed it.
var ErrTaskCancelled = errors.New("task cancelled")

// Payload is the unit of work executed by a worker. It must observe ctx for
// cooperative cancellation; the engine never forcibly terminates in-flight
// work.
type Payload func(ctx context.Context) error

// TaskStatus represents the lifecycle state of a task. A task is in exactly
// one status at any time.
type TaskStatus int

const (
	StatusQueued TaskStatus = iota
	StatusRunning
	StatusSucceeded
	StatusFailedRetryable
	StatusFailedTerminal
)

// String returns the string representation of the task status.
func (ts TaskStatus) String() string {
	switch ts {
	case StatusQueued:
		return "Queued"
	case StatusRunning:
		return "Running"
	case StatusSucceeded:
		return "Succeeded"
	case StatusFailedRetryable:
		return "FailedRetryable"
	case StatusFailedTerminal:
		return "FailedTerminal"
	default:
		return "Unknown"
	}
}

// TaskError is the terminal failure surfaced to whoever holds the task
// handle after all retries are exhausted.
type TaskError struct {
	TaskID   string
	Attempts int
	Err      error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed after %d attempts: %v", e.TaskID, e.Attempts, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Task is a prioritized, retryable unit of work. Fields are owned by the
// engine once submitted; producers interact through the returned Handle.
type Task struct {
	ID          string
	Priority    int
	EnqueuedAt  time.Time
	Attempt     int
	MaxAttempts int
	Payload     Payload

	status    TaskStatus
	notBefore time.Time // re-eligibility time after a retryable failure
	lastErr   error
	cancelled bool
	handle    *Handle
}

func newTask(priority, maxAttempts int, payload Payload, now time.Time) *Task {
	t := &Task{
		ID:          uuid.NewString(),
		Priority:    priority,
		EnqueuedAt:  now,
		MaxAttempts: maxAttempts,
		Payload:     payload,
		status:      StatusQueued,
	}
	t.handle = &Handle{task: t, done: make(chan struct{})}
	return t
}

// Handle tracks a submitted task to its terminal outcome.
type Handle struct {
	task   *Task
	engine *Engine
	done   chan struct{}
	err    error
}

// Done is closed when the task reaches a terminal outcome.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the terminal error, nil on success. Only valid after Done is
// closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// TaskID returns the identifier of the tracked task.
func (h *Handle) TaskID() string {
	return h.task.ID
}

// Cancel withdraws the task if no worker has claimed it yet, resolving the
// handle with ErrTaskCancelled. A running task is only cancelled
// cooperatively through its payload context when the engine shuts down.
func (h *Handle) Cancel() {
	if h.engine != nil {
		h.engine.cancelTask(h.task)
	}
}

// resolve closes the handle with the terminal error. Must be called at most
// once.
func (h *Handle) resolve(err error) {
	h.err = err
	close(h.done)
}
