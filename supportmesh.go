// Package supportmesh provides a high-level façade over the routing engine
// and its collaborators (session/agent registries, wait queue, AI responder,
// persistence & logging) enabling rapid construction of live-chat support
// backends. Most applications interact with this package by:
//  1. Creating a SupportMesh via New() (optionally overriding default in-memory services)
//  2. Feeding it connection and frame events from a transport (see the transport package)
//  3. Letting the engine route between the AI responder and human agents
//
// The façade delegates routing to routing.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a real responder, durable
// stores and a structured logger.
package supportmesh

import (
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/intent"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/routing"
	"github.com/hupe1980/supportmesh/summary"
)

// Options configures the SupportMesh instance.
type Options struct {
	// EngineConfig contains the routing timing and fan-out parameters.
	EngineConfig routing.Config

	// Responder generates AI replies. When nil every customer message is
	// answered with an apology plus handoff offer, which keeps the human
	// path fully usable without any provider credentials.
	Responder core.Responder

	// Stores (default to in-memory implementations if not provided).
	Sessions  core.SessionRegistry
	Agents    core.AgentRegistry
	Queue     core.WaitQueue
	Recorder  core.IntentRecorder
	Summaries core.SummaryStore

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// SupportMesh is the high-level façade aggregating the routing engine and
// its services.
type SupportMesh struct {
	opts   Options
	engine *routing.Engine
}

// New creates a new SupportMesh instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *SupportMesh {
	opts := Options{
		EngineConfig: routing.DefaultConfig,
		Recorder:     intent.NewInMemoryRecorder(1000),
		Summaries:    summary.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	e := routing.New(func(o *routing.Options) {
		o.Config = opts.EngineConfig
		o.Responder = opts.Responder
		o.Recorder = opts.Recorder
		o.Summaries = opts.Summaries
		o.Logger = opts.Logger
		if opts.Sessions != nil {
			o.Sessions = opts.Sessions
		}
		if opts.Agents != nil {
			o.Agents = opts.Agents
		}
		if opts.Queue != nil {
			o.Queue = opts.Queue
		}
	})

	return &SupportMesh{opts: opts, engine: e}
}

// Engine exposes the underlying routing engine for transports and tests.
func (m *SupportMesh) Engine() *routing.Engine { return m.engine }

// CustomerConnect attaches a customer connection to a session, creating the
// session when the token is unknown.
func (m *SupportMesh) CustomerConnect(sessionID string, conn core.Conn) {
	m.engine.CustomerConnect(sessionID, conn)
}

// CustomerMessage routes one customer message: relay during human handling,
// AI responder otherwise.
func (m *SupportMesh) CustomerMessage(sessionID, text string) {
	m.engine.CustomerMessage(sessionID, text)
}

// CustomerHandoffResponse resolves a pending handoff offer.
func (m *SupportMesh) CustomerHandoffResponse(sessionID string, accept bool) {
	m.engine.CustomerHandoffResponse(sessionID, accept)
}

// CustomerInfo submits the contact form and fires the human request.
func (m *SupportMesh) CustomerInfo(sessionID string, info core.CustomerInfo) {
	m.engine.CustomerInfo(sessionID, info)
}

// CustomerEnd explicitly ends a conversation.
func (m *SupportMesh) CustomerEnd(sessionID string) { m.engine.CustomerEnd(sessionID) }

// CustomerSurvey records post-chat satisfaction feedback.
func (m *SupportMesh) CustomerSurvey(sessionID string, rating int, comment string) {
	m.engine.CustomerSurvey(sessionID, rating, comment)
}

// CustomerDisconnect handles a dropped widget socket. conn identifies the
// dropping socket so a stale close cannot detach a replacement connection.
func (m *SupportMesh) CustomerDisconnect(sessionID string, conn core.Conn) {
	m.engine.CustomerDisconnect(sessionID, conn)
}

// AgentConnect registers an agent dashboard connection.
func (m *SupportMesh) AgentConnect(agentID, name, role string, conn core.Conn) *core.Agent {
	return m.engine.AgentConnect(agentID, name, role, conn)
}

// AgentAccept claims a queued session for the agent.
func (m *SupportMesh) AgentAccept(agentID, sessionID string) {
	m.engine.AgentAccept(agentID, sessionID)
}

// AgentMessage relays an agent reply into their assigned session.
func (m *SupportMesh) AgentMessage(agentID, sessionID, text string) {
	m.engine.AgentMessage(agentID, sessionID, text)
}

// AgentEnd closes the agent's assigned chat.
func (m *SupportMesh) AgentEnd(agentID, sessionID string) { m.engine.AgentEnd(agentID, sessionID) }

// AgentSetStatus toggles an agent between online and busy.
func (m *SupportMesh) AgentSetStatus(agentID string, status core.AgentStatus) {
	m.engine.AgentSetStatus(agentID, status)
}

// AgentDisconnect handles a dropped dashboard socket. conn identifies the
// dropping socket so a stale close cannot detach a replacement connection.
func (m *SupportMesh) AgentDisconnect(agentID string, conn core.Conn) {
	m.engine.AgentDisconnect(agentID, conn)
}

// QueueLen reports the current wait queue length.
func (m *SupportMesh) QueueLen() int { return m.engine.QueueLen() }

// SessionCount reports the number of active sessions.
func (m *SupportMesh) SessionCount() int { return m.engine.SessionCount() }

// Shutdown cancels all timers. In-flight responder calls drain on their own.
func (m *SupportMesh) Shutdown() { m.engine.Shutdown() }
