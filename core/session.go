package core

import (
	"time"
)

// Phase is the routing state of a session.
type Phase string

const (
	// PhaseAIHandling means the AI responder answers customer messages.
	PhaseAIHandling Phase = "ai_handling"
	// PhaseQueued means the session is waiting for a human agent.
	PhaseQueued Phase = "queued"
	// PhaseHumanHandling means an agent is assigned and messages are relayed.
	PhaseHumanHandling Phase = "human_handling"
	// PhaseEnded is terminal; the session is about to be evicted.
	PhaseEnded Phase = "ended"
)

// CustomerInfo is the optional contact profile captured right before a
// handoff request is queued.
type CustomerInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Country string `json:"country,omitempty"`
}

// Session is one customer conversation, identified by a client-persisted
// token so the customer can reconnect after a dropped socket.
//
// Ownership: a Session is exclusively owned by the session registry and is
// only ever mutated under the routing engine's lock. It intentionally has no
// internal synchronization; nothing outside the engine may hold a reference
// across transitions.
//
// Invariant: HasHuman is true iff AgentID is non-empty and that agent's
// record links back to this session.
type Session struct {
	ID         string        `json:"id"`
	Transcript []Message     `json:"transcript"`
	Phase      Phase         `json:"phase"`
	HasHuman   bool          `json:"has_human"`
	AgentID    string        `json:"agent_id,omitempty"`
	Customer   *CustomerInfo `json:"customer,omitempty"`
	Created    time.Time     `json:"created"`
	LastActive time.Time     `json:"last_active"`

	// PendingOffer is set while a handoff offer is on screen awaiting the
	// customer's yes/no. AwaitingInfo is set after a yes, while the contact
	// form is on screen; the human-request event fires only on submission.
	PendingOffer bool `json:"-"`
	AwaitingInfo bool `json:"-"`

	// Conn is the customer's live connection, nil while disconnected. A
	// reconnect replaces the reference; two records never share a Conn.
	Conn Conn `json:"-"`
}

// NewSession creates an empty AI-handled session for the given client token.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, Transcript: []Message{}, Phase: PhaseAIHandling, Created: now, LastActive: now}
}

// Append adds a message with a server-assigned timestamp and refreshes the
// activity clock.
func (s *Session) Append(role Role, text string) Message {
	m := NewMessage(role, text)
	s.Transcript = append(s.Transcript, m)
	s.LastActive = m.Timestamp
	return m
}

// TranscriptCopy returns a defensive copy of the transcript so callers can
// hand it to encoders or stores without racing later appends.
func (s *Session) TranscriptCopy() []Message {
	out := make([]Message, len(s.Transcript))
	copy(out, s.Transcript)
	return out
}

// TranscriptTail returns a copy of up to n trailing transcript entries,
// used to re-sync a reconnecting agent.
func (s *Session) TranscriptTail(n int) []Message {
	if n <= 0 || n >= len(s.Transcript) {
		return s.TranscriptCopy()
	}
	out := make([]Message, n)
	copy(out, s.Transcript[len(s.Transcript)-n:])
	return out
}

// ConnAlive reports whether the customer connection exists and is writable.
func (s *Session) ConnAlive() bool {
	return s.Conn != nil && s.Conn.Alive()
}
