package engine

import (
	"container/heap"
	"time"
)

// readyQueue orders runnable tasks by priority (higher first) and, within a
// priority band, by enqueue time (earlier first). The FIFO tie-break keeps
// equal-priority tasks fair.
type readyQueue struct {
	items []*Task
}

func (q *readyQueue) Len() int { return len(q.items) }

func (q *readyQueue) Less(i, j int) bool {
	if q.items[i].Priority != q.items[j].Priority {
		return q.items[i].Priority > q.items[j].Priority
	}
	return q.items[i].EnqueuedAt.Before(q.items[j].EnqueuedAt)
}

func (q *readyQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *readyQueue) Push(x interface{}) {
	q.items = append(q.items, x.(*Task))
}

func (q *readyQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	q.items = old[0 : n-1]
	return item
}

// delayedQueue holds tasks waiting out a retry backoff, ordered by
// re-eligibility time. Promotion back to the ready queue happens in the
// dispatcher, so the retry schedule is plain queue state rather than a chain
// of sleeping goroutines.
type delayedQueue struct {
	items []*Task
}

func (q *delayedQueue) Len() int { return len(q.items) }

func (q *delayedQueue) Less(i, j int) bool {
	return q.items[i].notBefore.Before(q.items[j].notBefore)
}

func (q *delayedQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *delayedQueue) Push(x interface{}) {
	q.items = append(q.items, x.(*Task))
}

func (q *delayedQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	q.items = old[0 : n-1]
	return item
}

// peek returns the task with the earliest re-eligibility time without
// removing it.
func (q *delayedQueue) peek() *Task {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// popDue removes and returns the earliest delayed task if it is due at now.
func (q *delayedQueue) popDue(now time.Time) *Task {
	head := q.peek()
	if head == nil || head.notBefore.After(now) {
		return nil
	}
	return heap.Pop(q).(*Task)
}
