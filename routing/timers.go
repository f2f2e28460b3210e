package routing

import (
	"time"

	"github.com/hupe1980/supportmesh/core"
)

func nowUTC() time.Time { return time.Now().UTC() }

// onInactivity fires when a customer has been silent for the warn window.
// A queued, unassigned session is removed from the queue (agents see the
// shorter queue); in every case the customer gets an idle warning so they
// can keep the session alive.
func (e *Engine) onInactivity(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions.Get(sessionID)
	if s == nil {
		return
	}
	if !s.HasHuman && e.queue.Position(s.ID) > 0 {
		e.queue.Dequeue(s.ID)
		s.Phase = core.PhaseAIHandling
		e.broadcastQueueUpdate()
		e.logger.Info("queued session dequeued for inactivity", "session_id", sessionID)
	}
	e.sendCustomer(s, core.CustomerEvent{Type: core.EvIdleWarning})
}

// onIdle fires when a session has been silent past the full idle window.
// The session is force-ended and evicted regardless of mode.
func (e *Engine) onIdle(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions.Get(sessionID)
	if s == nil {
		return
	}
	e.logger.Info("session idle timeout", "session_id", sessionID, "has_human", s.HasHuman)
	e.endChat(s, core.EndReasonIdleTimeout, false)
}

// onAgentGrace fires when a dropped agent failed to reconnect in time. The
// assigned chat ends with reason "agent timeout" and the agent record is
// dropped; a later reconnect joins as a fresh online agent.
func (e *Engine) onAgentGrace(agentID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.agents.Get(agentID)
	if a == nil || a.ConnAlive() {
		return
	}
	if s := e.sessions.Get(a.SessionID); s != nil && s.AgentID == agentID {
		e.logger.Info("agent grace expired", "agent_id", agentID, "session_id", s.ID)
		e.endChat(s, core.EndReasonAgentTimeout, true)
	}
	e.agents.Remove(agentID)
}
