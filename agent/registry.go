// Package agent houses the in-memory implementation of core.AgentRegistry,
// tracking every authenticated human operator, their dashboard connection
// and their current assignment.
package agent

import (
	"sync"
	"time"

	"github.com/hupe1980/supportmesh/core"
)

// Registry is a volatile core.AgentRegistry. Records survive socket drops
// while a session is assigned, which is what distinguishes "agent offline"
// from "agent's socket dropped".
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*core.Agent
}

// NewRegistry constructs an empty in-memory agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*core.Agent)}
}

// Connect registers a fresh agent or re-links the connection of a known one.
// The previous Conn reference is replaced, never kept alongside the new one.
// reconnection is true when the agent still has a session assigned, meaning
// the caller should run the grace-window restore path.
func (r *Registry) Connect(id, name, role string, conn core.Conn) (*core.Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.agents[id]; ok {
		a.Conn = conn
		a.Name = name
		if role != "" {
			a.Role = role
		}
		reconnection := a.SessionID != ""
		if reconnection {
			a.Status = core.AgentBusy
		} else {
			a.Status = core.AgentOnline
		}
		return a, reconnection
	}

	a := &core.Agent{
		ID:       id,
		Name:     name,
		Role:     role,
		Status:   core.AgentOnline,
		LoggedIn: time.Now().UTC(),
		Conn:     conn,
	}
	r.agents[id] = a
	return a, false
}

// Get returns the agent or nil when unknown.
func (r *Registry) Get(id string) *core.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[id]
}

// SetStatus updates the availability status of a known agent.
func (r *Registry) SetStatus(id string, status core.AgentStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[id]; ok {
		a.Status = status
	}
}

// Assign links the agent to a session and marks it busy.
func (r *Registry) Assign(agentID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[agentID]; ok {
		a.SessionID = sessionID
		a.Status = core.AgentBusy
	}
}

// Release clears the assignment. The agent returns to online when its
// connection is live, offline otherwise.
func (r *Registry) Release(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[agentID]; ok {
		a.SessionID = ""
		if a.ConnAlive() {
			a.Status = core.AgentOnline
		} else {
			a.Status = core.AgentOffline
		}
	}
}

// ListAvailable returns agents that are online with a live connection.
func (r *Registry) ListAvailable() []*core.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.Agent
	for _, a := range r.agents {
		if a.Status == core.AgentOnline && a.ConnAlive() {
			out = append(out, a)
		}
	}
	return out
}

// LiveConns returns every agent holding a live connection regardless of
// status, for queue-position broadcasts.
func (r *Registry) LiveConns() []*core.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.Agent
	for _, a := range r.agents {
		if a.ConnAlive() {
			out = append(out, a)
		}
	}
	return out
}

// Disconnect nulls the connection and returns the assigned session ID, empty
// when none. Unassigned records are destroyed immediately; assigned ones are
// kept for the reconnect grace window.
func (r *Registry) Disconnect(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return ""
	}
	a.Conn = nil
	if a.SessionID == "" {
		delete(r.agents, id)
		return ""
	}
	a.Status = core.AgentOffline
	return a.SessionID
}

// Remove drops the record unconditionally, used when the reconnect grace
// timer expires.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, id)
}
