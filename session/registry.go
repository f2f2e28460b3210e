// Package session houses the in-memory implementation of
// core.SessionRegistry. The Session struct and the interface live in core to
// centralize domain contracts; keeping only the implementation here prevents
// the routing layer from depending on concrete storage.
package session

import (
	"sync"

	"github.com/hupe1980/supportmesh/core"
)

// Registry is a volatile core.SessionRegistry storing sessions in a process
// local map. The routing engine serializes all transitions, but the registry
// carries its own mutex so transport goroutines can take read-only snapshots
// (Len, Get for health endpoints) without coordination.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewRegistry constructs an empty in-memory session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*core.Session)}
}

// GetOrCreate returns the existing session or lazily creates a fresh one.
func (r *Registry) GetOrCreate(id string) *core.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := core.NewSession(id)
	r.sessions[id] = s
	return s
}

// Get returns the session or nil when unknown.
func (r *Registry) Get(id string) *core.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Append adds a transcript entry. Absent sessions are a silent no-op;
// callers are expected to GetOrCreate first.
func (r *Registry) Append(id string, role core.Role, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Append(role, text)
	}
}

// MarkHumanJoined flips HasHuman and records the agent link in one step.
func (r *Registry) MarkHumanJoined(id, agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.HasHuman = true
		s.AgentID = agentID
		s.Phase = core.PhaseHumanHandling
	}
}

// MarkHumanLeft clears HasHuman and the agent link in one step, returning
// the session to AI handling.
func (r *Registry) MarkHumanLeft(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.HasHuman = false
		s.AgentID = ""
		s.Phase = core.PhaseAIHandling
	}
}

// AttachConn replaces the customer connection reference. The prior Conn, if
// any, is simply dropped; a record never holds two connections.
func (r *Registry) AttachConn(id string, conn core.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.Conn = conn
	}
}

// Remove evicts the session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
