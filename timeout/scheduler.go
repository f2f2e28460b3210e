// Package timeout provides the keyed timer scheduler behind customer
// inactivity, idle-eviction and agent reconnect-grace handling. Each timer is
// individually cancelable and re-armable; re-arming a key always cancels the
// previous timer first so rapid reconnect cycles cannot leak or double-fire.
package timeout

import (
	"sync"
	"time"
)

// Kind distinguishes the timer classes the routing engine arms.
type Kind string

const (
	// KindInactivity fires when a customer stops typing for the warn window.
	KindInactivity Kind = "inactivity"
	// KindIdle fires when a session has been silent past the idle window.
	KindIdle Kind = "idle"
	// KindAgentGrace fires when a dropped agent fails to reconnect in time.
	KindAgentGrace Kind = "agent_grace"
)

type key struct {
	kind Kind
	id   string
}

// Scheduler owns the active timers, keyed by (kind, entity id). Callbacks
// run on timer goroutines; callers that mutate shared state must take their
// own lock inside the callback.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[key]*time.Timer
	stopped bool
}

// NewScheduler constructs an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[key]*time.Timer)}
}

// Arm schedules fn to run after d, replacing any existing timer for the same
// (kind, id) key. Arming on a stopped scheduler is a no-op.
func (s *Scheduler) Arm(kind Kind, id string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	k := key{kind: kind, id: id}
	if t, ok := s.timers[k]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		// A timer that lost a re-arm race may still fire; only the current
		// registration is allowed to run its callback.
		if s.stopped || s.timers[k] != t {
			s.mu.Unlock()
			return
		}
		delete(s.timers, k)
		s.mu.Unlock()
		fn()
	})
	s.timers[k] = t
}

// Cancel stops and forgets the timer for (kind, id). Idempotent.
func (s *Scheduler) Cancel(kind Kind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{kind: kind, id: id}
	if t, ok := s.timers[k]; ok {
		t.Stop()
		delete(s.timers, k)
	}
}

// CancelAll stops every timer registered for the entity id across all kinds.
func (s *Scheduler) CancelAll(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, t := range s.timers {
		if k.id == id {
			t.Stop()
			delete(s.timers, k)
		}
	}
}

// Active reports whether a timer is currently armed for (kind, id).
func (s *Scheduler) Active(kind Kind, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key{kind: kind, id: id}]
	return ok
}

// Len reports the number of armed timers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every timer and rejects further arming. Used on shutdown;
// timers are best-effort and never durable.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for k, t := range s.timers {
		t.Stop()
		delete(s.timers, k)
	}
}
