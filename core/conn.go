package core

// Conn is the bidirectional transport attached to one customer or one agent.
//
// Implementations must make Send safe for concurrent use and must never
// panic on a closed underlying socket; the routing engine checks Alive
// before every write and treats a failed Send as a skipped notification,
// relying on the reconnection machinery for recovery.
type Conn interface {
	// Send marshals and writes one outbound frame. Returns an error when the
	// connection is no longer writable; it must not block indefinitely.
	Send(v any) error

	// Alive reports whether the connection is still writable.
	Alive() bool

	// Close tears the connection down. Idempotent.
	Close() error
}
