// Package queue implements the FIFO wait queue of sessions awaiting human
// pickup. Ordering is strict arrival order with no priorities; a session
// appears at most once.
package queue

import (
	"sync"
)

// FIFO is a mutex-guarded ordered set of session IDs implementing
// core.WaitQueue.
type FIFO struct {
	mu  sync.RWMutex
	ids []string
}

// NewFIFO constructs an empty wait queue.
func NewFIFO() *FIFO {
	return &FIFO{}
}

// Enqueue appends the session if absent and returns its 1-based position.
// An already-queued session keeps its place.
func (q *FIFO) Enqueue(id string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, existing := range q.ids {
		if existing == id {
			return i + 1
		}
	}
	q.ids = append(q.ids, id)
	return len(q.ids)
}

// Dequeue removes the session if present. Idempotent.
func (q *FIFO) Dequeue(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, existing := range q.ids {
		if existing == id {
			q.ids = append(q.ids[:i], q.ids[i+1:]...)
			return
		}
	}
}

// Position returns the 1-based position, or 0 when absent.
func (q *FIFO) Position(id string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for i, existing := range q.ids {
		if existing == id {
			return i + 1
		}
	}
	return 0
}

// Len reports the queue length.
func (q *FIFO) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.ids)
}

// Snapshot returns a copy of the queued ids in arrival order.
func (q *FIFO) Snapshot() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]string, len(q.ids))
	copy(out, q.ids)
	return out
}
