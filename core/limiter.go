package core

import (
	"fmt"
	"sync"
)

// ResponderLimiter bounds the number of in-flight AI responder calls so a
// burst of customer messages cannot exhaust provider quota or sockets.
type ResponderLimiter struct {
	max      int
	inFlight int
	mu       sync.Mutex
}

// NewResponderLimiter creates a limiter allowing max concurrent calls.
// If max == 0, calls are unlimited.
func NewResponderLimiter(max int) *ResponderLimiter {
	return &ResponderLimiter{max: max}
}

// Acquire reserves a slot, returning an error when the limit is saturated.
// It never blocks: the engine converts a rejection into a degraded reply.
func (rl *ResponderLimiter) Acquire() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.max > 0 && rl.inFlight >= rl.max {
		return fmt.Errorf("responder saturated: %d calls in flight", rl.inFlight)
	}
	rl.inFlight++
	return nil
}

// Release frees a slot previously reserved with Acquire.
func (rl *ResponderLimiter) Release() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.inFlight > 0 {
		rl.inFlight--
	}
}

// InFlight reports the current number of reserved slots.
func (rl *ResponderLimiter) InFlight() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.inFlight
}
