package core

import "time"

// AgentStatus is the availability state of a human agent.
type AgentStatus string

const (
	// AgentOnline means the agent is connected and free to accept requests.
	AgentOnline AgentStatus = "online"
	// AgentBusy means the agent is assigned to a session.
	AgentBusy AgentStatus = "busy"
	// AgentOffline means the agent's socket dropped but the record is kept
	// (an assignment may still reference it during the grace window).
	AgentOffline AgentStatus = "offline"
)

// Agent is one authenticated human operator connected through the dashboard.
//
// Ownership mirrors Session: the record is exclusively owned by the agent
// registry and mutated only under the routing engine's lock. A dropped
// socket nulls Conn without destroying the record; the record is destroyed
// on disconnect only when no session is assigned.
type Agent struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Role      string      `json:"role"`
	Status    AgentStatus `json:"status"`
	SessionID string      `json:"session_id,omitempty"`
	LoggedIn  time.Time   `json:"logged_in"`

	// Conn is the live dashboard connection, nil while the agent is known
	// but disconnected. A reconnect replaces the reference.
	Conn Conn `json:"-"`
}

// ConnAlive reports whether the dashboard connection exists and is writable.
func (a *Agent) ConnAlive() bool {
	return a.Conn != nil && a.Conn.Alive()
}
