package routing

import (
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/timeout"
)

// AgentConnect registers a dashboard connection. A reconnection within the
// grace window restores the previous assignment: the grace timer is
// canceled, the transcript tail is re-pushed and the customer is told the
// agent is back. Fresh joins receive the current pending queue.
func (e *Engine) AgentConnect(agentID, name, role string, conn core.Conn) *core.Agent {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, reconnection := e.agents.Connect(agentID, name, role, conn)

	if reconnection {
		s := e.sessions.Get(a.SessionID)
		if s != nil && s.AgentID == agentID {
			e.timers.Cancel(timeout.KindAgentGrace, agentID)
			e.sendAgent(a, core.AgentEvent{
				Type:          core.EvSessionAssigned,
				SessionID:     s.ID,
				Customer:      s.Customer,
				Transcript:    s.TranscriptTail(e.config.TranscriptTail),
				CannedReplies: e.config.CannedReplies,
			})
			e.sendCustomer(s, core.CustomerEvent{Type: core.EvAgentReconnected, AgentName: a.Name})
			e.logger.Info("agent reconnected within grace", "agent_id", agentID, "session_id", s.ID)
			return a
		}
		// The assignment disappeared while the agent was away; join fresh.
		e.agents.Release(agentID)
	}

	for i, id := range e.queue.Snapshot() {
		if s := e.sessions.Get(id); s != nil {
			e.sendAgent(a, e.pendingRequestEvent(s, i+1))
		}
	}
	e.logger.Info("agent connected", "agent_id", agentID, "name", name)
	return a
}

// AgentAccept claims a queued session. The check-then-act runs under the
// engine lock, so of several near-simultaneous accepts exactly one wins;
// every later one is rejected with "already taken" sent only to that
// acceptor.
func (e *Engine) AgentAccept(agentID, sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.agents.Get(agentID)
	if a == nil {
		e.logger.Warn("accept from unknown agent", "agent_id", agentID)
		return
	}
	if a.SessionID != "" {
		// One assignment per agent: accepting a second chat would overwrite
		// the backlink and orphan the first session.
		e.sendAgent(a, core.AgentEvent{Type: core.EvAcceptRejected, SessionID: sessionID, Reason: "agent_busy"})
		e.metrics.acceptRejected.Inc()
		return
	}
	s := e.sessions.Get(sessionID)
	if s == nil || s.Phase == core.PhaseEnded {
		e.sendAgent(a, core.AgentEvent{Type: core.EvAcceptRejected, SessionID: sessionID, Reason: "not_found"})
		return
	}
	if s.HasHuman {
		e.sendAgent(a, core.AgentEvent{Type: core.EvAcceptRejected, SessionID: sessionID, Reason: "already_taken"})
		e.metrics.acceptRejected.Inc()
		return
	}

	e.sessions.MarkHumanJoined(s.ID, agentID)
	e.agents.Assign(agentID, s.ID)
	e.queue.Dequeue(s.ID)
	e.timers.Cancel(timeout.KindInactivity, s.ID)

	s.Append(core.RoleSystem, "agent "+a.Name+" joined the conversation")
	e.sendCustomer(s, core.CustomerEvent{Type: core.EvAgentJoined, AgentName: a.Name})
	e.sendAgent(a, core.AgentEvent{
		Type:          core.EvSessionAssigned,
		SessionID:     s.ID,
		Customer:      s.Customer,
		Transcript:    s.TranscriptCopy(),
		CannedReplies: e.config.CannedReplies,
	})
	for _, other := range e.agents.LiveConns() {
		if other.ID != agentID {
			e.sendAgent(other, core.AgentEvent{Type: core.EvRequestTaken, SessionID: s.ID})
		}
	}
	e.metrics.handoffsTaken.Inc()
	e.syncGauges()
	e.logger.Info("handoff accepted", "agent_id", agentID, "session_id", s.ID)
}

// AgentMessage relays an agent's reply to the customer. Only the assigned
// agent may speak into a session.
func (e *Engine) AgentMessage(agentID, sessionID, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions.Get(sessionID)
	if s == nil || s.AgentID != agentID {
		e.logger.Warn("agent message for unassigned session", "agent_id", agentID, "session_id", sessionID)
		return
	}
	s.Append(core.RoleAgent, text)

	a := e.agents.Get(agentID)
	name := ""
	if a != nil {
		name = a.Name
	}
	e.sendCustomer(s, core.CustomerEvent{Type: core.EvAgentMessage, Text: text, AgentName: name})
}

// AgentEnd closes the agent's assigned chat.
func (e *Engine) AgentEnd(agentID, sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions.Get(sessionID)
	if s == nil || s.AgentID != agentID {
		e.logger.Warn("end for unassigned session", "agent_id", agentID, "session_id", sessionID)
		return
	}
	e.endChat(s, core.EndReasonAgent, true)
}

// AgentSetStatus toggles an agent between online and busy (away).
func (e *Engine) AgentSetStatus(agentID string, status core.AgentStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.agents.SetStatus(agentID, status)
}

// AgentDisconnect handles the dashboard socket closing. Assigned agents keep
// their record and get a reconnect grace window; unassigned records are
// destroyed by the registry. conn identifies the dropping socket: when the
// agent already reconnected on a fresh socket, the late close report from
// the old read loop is ignored instead of nulling the live connection.
func (e *Engine) AgentDisconnect(agentID string, conn core.Conn) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.agents.Get(agentID)
	if a == nil {
		return
	}
	if a.Conn != conn {
		e.logger.Debug("stale agent disconnect ignored", "agent_id", agentID)
		return
	}

	sid := e.agents.Disconnect(agentID)
	if sid == "" {
		e.logger.Info("agent disconnected", "agent_id", agentID)
		return
	}

	s := e.sessions.Get(sid)
	if s == nil || s.AgentID != agentID {
		e.agents.Remove(agentID)
		return
	}
	e.armAgentGrace(agentID)
	e.sendCustomer(s, core.CustomerEvent{Type: core.EvAgentDisconnected})
	e.logger.Info("agent dropped mid-session, grace timer armed", "agent_id", agentID, "session_id", sid)
}

func (e *Engine) armAgentGrace(agentID string) {
	e.timers.Arm(timeout.KindAgentGrace, agentID, e.config.AgentGrace, func() { e.onAgentGrace(agentID) })
}

// endChat is the shared termination path. Callers hold the engine lock.
// It persists the summary, frees the agent, clears the queue entry, cancels
// timers, notifies both sides and finally evicts the session.
func (e *Engine) endChat(s *core.Session, reason string, survey bool) {
	sum := e.buildSummary(s, reason)

	if s.HasHuman {
		if a := e.agents.Get(s.AgentID); a != nil {
			e.timers.Cancel(timeout.KindAgentGrace, a.ID)
			e.sendAgent(a, core.AgentEvent{Type: core.EvSessionEnded, SessionID: s.ID, Reason: reason})
			e.agents.Release(a.ID)
			if !a.ConnAlive() {
				// No assignment left and no live socket: drop the record.
				e.agents.Remove(a.ID)
			}
		}
		e.sessions.MarkHumanLeft(s.ID)
	}

	e.persistSummary(sum)

	s.Phase = core.PhaseEnded
	e.sendCustomer(s, core.CustomerEvent{Type: core.EvChatEnded, Reason: reason})
	if survey {
		e.sendCustomer(s, core.CustomerEvent{Type: core.EvSurveyRequest})
	}

	if e.queue.Position(s.ID) > 0 {
		e.queue.Dequeue(s.ID)
		e.broadcastQueueUpdate()
	}
	e.timers.CancelAll(s.ID)
	e.sessions.Remove(s.ID)
	e.metrics.sessionEnds.WithLabelValues(reason).Inc()
	e.syncGauges()
	e.logger.Info("chat ended", "session_id", s.ID, "reason", reason)
}

// buildSummary snapshots the session for persistence.
func (e *Engine) buildSummary(s *core.Session, reason string) core.ChatSummary {
	sum := core.ChatSummary{
		SessionID:  s.ID,
		Reason:     reason,
		Customer:   s.Customer,
		Transcript: s.TranscriptCopy(),
		EndedAt:    nowUTC(),
	}
	if s.HasHuman {
		sum.AgentID = s.AgentID
		if a := e.agents.Get(s.AgentID); a != nil {
			sum.AgentName = a.Name
		}
	}
	return sum
}
