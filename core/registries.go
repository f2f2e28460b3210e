package core

// SessionRegistry owns the set of active customer sessions. All mutation
// happens under the routing engine's lock; implementations only need to make
// their own bookkeeping consistent.
type SessionRegistry interface {
	// GetOrCreate returns the session for id, creating an empty AI-handled
	// one when absent. Idempotent per id.
	GetOrCreate(id string) *Session

	// Get returns the session or nil when unknown.
	Get(id string) *Session

	// Append adds a transcript entry with a server-assigned timestamp.
	// Silent no-op when the session is absent; callers create first.
	Append(id string, role Role, text string)

	// MarkHumanJoined flips HasHuman and links the agent atomically.
	MarkHumanJoined(id, agentID string)

	// MarkHumanLeft clears HasHuman and the agent link atomically.
	MarkHumanLeft(id string)

	// AttachConn replaces (never appends) the customer connection reference.
	AttachConn(id string, conn Conn)

	// Remove evicts the session.
	Remove(id string)

	// Len reports the number of active sessions.
	Len() int
}

// AgentRegistry owns the set of connected or known human agents.
type AgentRegistry interface {
	// Connect registers a fresh agent or re-links the connection of a known
	// one, replacing any previous Conn. The reconnection flag is true when
	// the agent still has a session assigned from before the drop.
	Connect(id, name, role string, conn Conn) (agent *Agent, reconnection bool)

	// Get returns the agent or nil when unknown.
	Get(id string) *Agent

	// SetStatus updates the availability status.
	SetStatus(id string, status AgentStatus)

	// Assign links the agent to a session and marks it busy.
	Assign(agentID, sessionID string)

	// Release clears the assignment and returns the agent to online.
	Release(agentID string)

	// ListAvailable returns agents that are online with a live connection.
	// A known but disconnected agent never counts.
	ListAvailable() []*Agent

	// LiveConns returns every agent holding a live connection regardless of
	// status, for queue broadcasts.
	LiveConns() []*Agent

	// Disconnect nulls the connection. The assigned session ID is returned
	// (empty when none) so the caller can arm the reconnect grace timer; the
	// record itself is destroyed only when nothing was assigned.
	Disconnect(id string) (assignedSession string)

	// Remove drops the record unconditionally (grace timer expiry).
	Remove(id string)
}

// WaitQueue is the FIFO of sessions awaiting human pickup. A session appears
// at most once; only sessions with HasHuman == false may be queued.
type WaitQueue interface {
	// Enqueue appends if absent and returns the 1-based position.
	Enqueue(id string) int

	// Dequeue removes if present. Idempotent.
	Dequeue(id string)

	// Position returns the 1-based position, or 0 when absent.
	Position(id string) int

	// Len reports the queue length.
	Len() int

	// Snapshot returns a copy of the queued ids in order.
	Snapshot() []string
}
