package routing

import (
	"context"
	"time"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/timeout"
)

// apologyText is the degraded reply used when the AI responder is
// unavailable or saturated.
const apologyText = "I'm sorry, I'm having trouble answering right now. Would you like me to connect you with a human agent?"

// CustomerConnect handles a restore-session request: an unknown token
// creates a fresh session, a known one re-links the connection, pushes the
// current status and tells the assigned agent (if any) that the customer is
// back.
func (e *Engine) CustomerConnect(sessionID string, conn core.Conn) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions.GetOrCreate(sessionID)
	s.Conn = conn
	e.armActivityTimers(s.ID)
	e.syncGauges()

	hasHuman := s.HasHuman
	status := core.CustomerEvent{
		Type:     core.EvSessionStatus,
		HasHuman: &hasHuman,
		History:  s.TranscriptCopy(),
	}
	if s.HasHuman {
		if a := e.agents.Get(s.AgentID); a != nil {
			status.AgentName = a.Name
			e.sendAgent(a, core.AgentEvent{Type: core.EvCustomerReconnected, SessionID: s.ID})
		}
	}
	e.sendCustomer(s, status)
	e.logger.Info("customer connected", "session_id", s.ID, "has_human", hasHuman)
}

// CustomerMessage appends the message, resets the activity timers and either
// relays it to the assigned human agent or dispatches the AI responder.
func (e *Engine) CustomerMessage(sessionID, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions.GetOrCreate(sessionID)
	s.Append(core.RoleCustomer, text)
	e.armActivityTimers(s.ID)
	e.syncGauges()

	if s.HasHuman {
		e.relayToAgent(s, text)
		return
	}

	// A message typed over a pending offer supersedes it.
	s.PendingOffer = false

	e.dispatchResponder(s, text)
}

// relayToAgent forwards raw customer text to the assigned agent. A dead
// agent connection arms the reconnect grace timer and tells the customer
// about the temporary disruption.
func (e *Engine) relayToAgent(s *core.Session, text string) {
	a := e.agents.Get(s.AgentID)
	if a == nil {
		e.logger.Warn("assigned agent vanished", "session_id", s.ID, "agent_id", s.AgentID)
		return
	}
	if a.ConnAlive() {
		e.sendAgent(a, core.AgentEvent{Type: core.EvCustomerMessage, SessionID: s.ID, Text: text})
		return
	}
	if !e.timers.Active(timeout.KindAgentGrace, a.ID) {
		e.armAgentGrace(a.ID)
	}
	e.sendCustomer(s, core.CustomerEvent{Type: core.EvAgentDisconnected})
}

// dispatchResponder starts the AI call outside the engine lock. The limiter
// converts saturation into an immediate degraded reply instead of queueing.
func (e *Engine) dispatchResponder(s *core.Session, text string) {
	if e.responder == nil {
		e.degradedReply(s)
		return
	}
	if err := e.limiter.Acquire(); err != nil {
		e.logger.Warn("responder saturated", "session_id", s.ID, "error", err)
		e.degradedReply(s)
		return
	}

	sessionID := s.ID
	history := s.TranscriptCopy()
	go func() {
		defer e.limiter.Release()
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		verdict, err := e.responder.Generate(ctx, text, history)
		e.logger.Debug("responder returned", "session_id", sessionID, "duration", time.Since(start), "error", err)
		e.applyVerdict(sessionID, text, verdict, err)
	}()
}

// applyVerdict re-enters the engine after the responder suspension point.
// Session state is re-validated under the lock: a human may have joined or
// the session may have ended while the call was in flight.
func (e *Engine) applyVerdict(sessionID, customerText string, verdict *core.Verdict, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions.Get(sessionID)
	if s == nil || s.Phase == core.PhaseEnded {
		e.logger.Debug("verdict dropped, session gone", "session_id", sessionID)
		return
	}
	if s.HasHuman {
		// Post-await re-check: the human takes precedence over a late verdict.
		e.logger.Debug("verdict dropped, human joined mid-call", "session_id", sessionID)
		return
	}

	if err != nil || verdict == nil || verdict.Outcome == core.OutcomeError {
		e.logger.Error("responder failed, degrading", "session_id", sessionID, "error", err)
		e.degradedReply(s)
		return
	}

	if verdict.OffersHandoff() {
		s.Append(core.RoleAssistant, verdict.Text)
		s.PendingOffer = true
		e.sendCustomer(s, core.CustomerEvent{Type: core.EvHandoffOffer, Text: verdict.Text})
		e.metrics.handoffsOffered.Inc()
	} else {
		s.Append(core.RoleAssistant, verdict.Text)
		e.sendCustomer(s, core.CustomerEvent{Type: core.EvAIReply, Text: verdict.Text, Sources: verdict.Sources})
		e.metrics.aiReplies.Inc()
	}

	e.recordIntent(core.IntentRecord{
		SessionID:    sessionID,
		Message:      customerText,
		Intent:       verdict.Intent,
		Category:     verdict.Category,
		Confidence:   verdict.Confidence,
		MatchedDocs:  verdict.Sources,
		ResponseType: string(verdict.Outcome),
		Customer:     s.Customer,
	})
}

// degradedReply apologizes and offers a handoff. Used for responder
// failures, saturation and missing responder wiring.
func (e *Engine) degradedReply(s *core.Session) {
	s.Append(core.RoleAssistant, apologyText)
	s.PendingOffer = true
	e.sendCustomer(s, core.CustomerEvent{Type: core.EvHandoffOffer, Text: apologyText})
	e.metrics.handoffsOffered.Inc()
}

// CustomerHandoffResponse resolves a pending offer. Acceptance opens the
// contact form; the human-request event fires only once the form is
// submitted. Decline returns silently to AI handling.
func (e *Engine) CustomerHandoffResponse(sessionID string, accept bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions.Get(sessionID)
	if s == nil || !s.PendingOffer {
		e.logger.Debug("handoff response without pending offer", "session_id", sessionID)
		return
	}
	s.PendingOffer = false

	if !accept {
		s.Append(core.RoleSystem, "customer declined handoff offer")
		return
	}
	s.AwaitingInfo = true
	e.sendCustomer(s, core.CustomerEvent{Type: core.EvInfoRequest})
}

// CustomerInfo stores the submitted contact profile and fires the
// human-request event.
func (e *Engine) CustomerInfo(sessionID string, info core.CustomerInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions.Get(sessionID)
	if s == nil || !s.AwaitingInfo {
		e.logger.Debug("contact info without pending form", "session_id", sessionID)
		return
	}
	s.AwaitingInfo = false
	s.Customer = &info
	e.requestHuman(s)
}

// requestHuman enqueues the session when at least one agent connection is
// live; otherwise the customer is told no agents are available and nothing
// is queued.
func (e *Engine) requestHuman(s *core.Session) {
	if s.HasHuman {
		return
	}
	if len(e.agents.LiveConns()) == 0 {
		e.sendCustomer(s, core.CustomerEvent{Type: core.EvNoAgents})
		e.logger.Info("human requested with no agents available", "session_id", s.ID)
		return
	}

	pos := e.queue.Enqueue(s.ID)
	s.Phase = core.PhaseQueued
	e.sendCustomer(s, core.CustomerEvent{Type: core.EvQueued, Position: pos})
	e.broadcastAgents(e.pendingRequestEvent(s, pos))
	e.metrics.queueLength.Set(float64(e.queue.Len()))
	e.logger.Info("session queued for human", "session_id", s.ID, "position", pos)
}

// CustomerEnd explicitly ends the conversation from the widget.
func (e *Engine) CustomerEnd(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions.Get(sessionID)
	if s == nil {
		return
	}
	e.endChat(s, core.EndReasonCustomer, true)
}

// CustomerDisconnect handles the widget socket closing. Timers that would
// only nag a gone customer are canceled, but the idle-eviction timer is
// re-armed so an abandoned record is still reclaimed. A human-handled
// session keeps its state for reconnection. conn identifies the dropping
// socket: a late close report from a socket the customer already replaced
// is ignored.
func (e *Engine) CustomerDisconnect(sessionID string, conn core.Conn) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions.Get(sessionID)
	if s == nil {
		return
	}
	if s.Conn != conn {
		e.logger.Debug("stale customer disconnect ignored", "session_id", sessionID)
		return
	}
	e.timers.CancelAll(sessionID)
	e.timers.Arm(timeout.KindIdle, sessionID, e.config.IdleTimeout, func() { e.onIdle(sessionID) })
	s.Conn = nil

	if e.queue.Position(s.ID) > 0 {
		e.queue.Dequeue(s.ID)
		s.Phase = core.PhaseAIHandling
		e.broadcastQueueUpdate()
	}

	if s.HasHuman {
		e.persistSummary(e.buildSummary(s, core.EndReasonDisconnected))
		if a := e.agents.Get(s.AgentID); a != nil {
			e.sendAgent(a, core.AgentEvent{Type: core.EvCustomerDisconnected, SessionID: s.ID})
		}
	}
	e.logger.Info("customer disconnected", "session_id", sessionID, "has_human", s.HasHuman)
}

// CustomerSurvey records satisfaction feedback submitted after a chat ended.
// The session record may already be evicted; feedback only needs the token.
func (e *Engine) CustomerSurvey(sessionID string, rating int, comment string) {
	if e.summaries == nil {
		return
	}
	fb := core.Feedback{
		SessionID:   sessionID,
		Rating:      rating,
		Comment:     comment,
		SubmittedAt: time.Now().UTC(),
	}
	e.mu.Lock()
	if s := e.sessions.Get(sessionID); s != nil {
		fb.AgentID = s.AgentID
	}
	e.mu.Unlock()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.summaries.SaveFeedback(ctx, fb); err != nil {
			e.logger.Warn("feedback dropped", "session_id", sessionID, "error", err)
		}
	}()
}

// armActivityTimers (re-)arms both per-session activity timers. Arming
// cancels any previous registration for the same key.
func (e *Engine) armActivityTimers(sessionID string) {
	e.timers.Arm(timeout.KindInactivity, sessionID, e.config.InactivityWarn, func() { e.onInactivity(sessionID) })
	e.timers.Arm(timeout.KindIdle, sessionID, e.config.IdleTimeout, func() { e.onIdle(sessionID) })
}
