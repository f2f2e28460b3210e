package testutil

import (
	"fmt"
	"sync"

	"github.com/hupe1980/supportmesh/core"
)

// FakeConn is an in-memory core.Conn recording every frame passed to Send.
// Kill flips it dead; subsequent sends fail, mirroring a closed socket.
type FakeConn struct {
	mu     sync.Mutex
	frames []any
	dead   bool
}

// NewFakeConn returns a live fake connection.
func NewFakeConn() *FakeConn {
	return &FakeConn{}
}

// Send records the frame, or fails when the connection was killed.
func (c *FakeConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		return fmt.Errorf("connection closed")
	}
	c.frames = append(c.frames, v)
	return nil
}

// Alive reports whether the connection accepts writes.
func (c *FakeConn) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.dead
}

// Close marks the connection dead. Idempotent.
func (c *FakeConn) Close() error {
	c.Kill()
	return nil
}

// Kill marks the connection dead without error.
func (c *FakeConn) Kill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dead = true
}

// Frames returns a copy of everything sent so far.
func (c *FakeConn) Frames() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]any, len(c.frames))
	copy(out, c.frames)
	return out
}

// CustomerEvents filters the recorded frames down to customer events.
func (c *FakeConn) CustomerEvents() []core.CustomerEvent {
	var out []core.CustomerEvent
	for _, f := range c.Frames() {
		if ev, ok := f.(core.CustomerEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

// AgentEvents filters the recorded frames down to agent events.
func (c *FakeConn) AgentEvents() []core.AgentEvent {
	var out []core.AgentEvent
	for _, f := range c.Frames() {
		if ev, ok := f.(core.AgentEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

// HasCustomerEvent reports whether a customer event with the given type was
// sent.
func (c *FakeConn) HasCustomerEvent(evType string) bool {
	for _, ev := range c.CustomerEvents() {
		if ev.Type == evType {
			return true
		}
	}
	return false
}

// HasAgentEvent reports whether an agent event with the given type was sent.
func (c *FakeConn) HasAgentEvent(evType string) bool {
	for _, ev := range c.AgentEvents() {
		if ev.Type == evType {
			return true
		}
	}
	return false
}

// CountAgentEvent counts agent events with the given type.
func (c *FakeConn) CountAgentEvent(evType string) int {
	n := 0
	for _, ev := range c.AgentEvents() {
		if ev.Type == evType {
			n++
		}
	}
	return n
}
