package routing

import (
	"sync"
	"time"

	"github.com/hupe1980/supportmesh/agent"
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/queue"
	"github.com/hupe1980/supportmesh/session"
	"github.com/hupe1980/supportmesh/timeout"
)

// Config defines tuning parameters for the engine's timing and fan-out
// behavior. Zero values fall back to DefaultConfig at construction time.
type Config struct {
	// InactivityWarn is the silence window after which a queued session is
	// dequeued and the customer receives an idle warning. Re-armed on every
	// customer message.
	InactivityWarn time.Duration

	// IdleTimeout is the longer silence window after which a session is
	// force-ended and evicted, human-handled or not.
	IdleTimeout time.Duration

	// AgentGrace is the window a dropped agent has to reconnect before its
	// assigned chat is ended with reason "agent timeout".
	AgentGrace time.Duration

	// TranscriptTail bounds how many trailing messages are re-pushed to a
	// reconnecting agent.
	TranscriptTail int

	// PreviewLength bounds the last-message preview broadcast to agents
	// with a pending request.
	PreviewLength int

	// MaxResponderCalls bounds concurrent AI responder calls. 0 = unlimited.
	MaxResponderCalls int

	// CannedReplies are pushed to an agent when it takes over a session.
	CannedReplies []string
}

// DefaultConfig provides production-ready defaults: a two minute idle
// warning, ten minute eviction, thirty second agent grace window.
var DefaultConfig = Config{
	InactivityWarn:    2 * time.Minute,
	IdleTimeout:       10 * time.Minute,
	AgentGrace:        30 * time.Second,
	TranscriptTail:    20,
	PreviewLength:     80,
	MaxResponderCalls: 16,
}

// Options configures an Engine instance using the functional options
// pattern. All collaborators default to in-memory implementations so the
// engine is usable in tests and demos without external services; the
// responder has no default and must be provided for AI handling to work.
type Options struct {
	// Config contains timing and fan-out parameters.
	Config Config

	// Sessions owns the active conversations. Defaults to the in-memory
	// registry.
	Sessions core.SessionRegistry

	// Agents owns the human operator pool. Defaults to the in-memory
	// registry.
	Agents core.AgentRegistry

	// Queue orders sessions waiting for an agent. Defaults to the in-memory
	// FIFO.
	Queue core.WaitQueue

	// Responder generates AI replies. When nil every customer message is
	// answered with a degraded apology plus handoff offer.
	Responder core.Responder

	// Recorder receives fire-and-forget intent analytics. Defaults to a
	// bounded in-memory ring via the façade; nil disables recording.
	Recorder core.IntentRecorder

	// Summaries persists chat summaries and survey feedback. Nil disables
	// persistence (summaries are dropped with a log line).
	Summaries core.SummaryStore

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Engine is the routing state machine. It owns the three registries, the
// wait queue and the timer scheduler as plain fields; no global state.
//
// Concurrency model: one mutex serializes every transition. The transition
// methods never block on I/O while holding the lock; socket sends are
// non-blocking by the core.Conn contract and the AI responder runs on a
// separate goroutine bounded by a ResponderLimiter.
type Engine struct {
	sessions  core.SessionRegistry
	agents    core.AgentRegistry
	queue     core.WaitQueue
	timers    *timeout.Scheduler
	responder core.Responder
	recorder  core.IntentRecorder
	summaries core.SummaryStore
	limiter   *core.ResponderLimiter
	logger    logging.Logger
	config    Config
	metrics   *engineMetrics

	mu sync.Mutex
}

// New creates an Engine with sensible in-memory defaults and optional
// overrides applied through functional options.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:   DefaultConfig,
		Sessions: session.NewRegistry(),
		Agents:   agent.NewRegistry(),
		Queue:    queue.NewFIFO(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	applyConfigDefaults(&opts.Config)

	return &Engine{
		sessions:  opts.Sessions,
		agents:    opts.Agents,
		queue:     opts.Queue,
		timers:    timeout.NewScheduler(),
		responder: opts.Responder,
		recorder:  opts.Recorder,
		summaries: opts.Summaries,
		limiter:   core.NewResponderLimiter(opts.Config.MaxResponderCalls),
		logger:    opts.Logger,
		config:    opts.Config,
		metrics:   globalMetrics(),
	}
}

func applyConfigDefaults(cfg *Config) {
	if cfg.InactivityWarn <= 0 {
		cfg.InactivityWarn = DefaultConfig.InactivityWarn
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultConfig.IdleTimeout
	}
	if cfg.AgentGrace <= 0 {
		cfg.AgentGrace = DefaultConfig.AgentGrace
	}
	if cfg.TranscriptTail <= 0 {
		cfg.TranscriptTail = DefaultConfig.TranscriptTail
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = DefaultConfig.PreviewLength
	}
}

// WithConfig overrides the engine configuration.
func WithConfig(cfg Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithSessions overrides the session registry.
func WithSessions(r core.SessionRegistry) func(o *Options) {
	return func(o *Options) { o.Sessions = r }
}

// WithAgents overrides the agent registry.
func WithAgents(r core.AgentRegistry) func(o *Options) {
	return func(o *Options) { o.Agents = r }
}

// WithQueue overrides the wait queue.
func WithQueue(q core.WaitQueue) func(o *Options) {
	return func(o *Options) { o.Queue = q }
}

// WithResponder sets the AI responder.
func WithResponder(r core.Responder) func(o *Options) {
	return func(o *Options) { o.Responder = r }
}

// WithRecorder sets the intent recorder.
func WithRecorder(r core.IntentRecorder) func(o *Options) {
	return func(o *Options) { o.Recorder = r }
}

// WithSummaries sets the summary store.
func WithSummaries(s core.SummaryStore) func(o *Options) {
	return func(o *Options) { o.Summaries = s }
}

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// QueueLen reports the current wait queue length.
func (e *Engine) QueueLen() int { return e.queue.Len() }

// SessionCount reports the number of active sessions.
func (e *Engine) SessionCount() int { return e.sessions.Len() }

// Shutdown cancels every timer. In-flight responder calls finish but their
// verdicts are dropped once their session is gone; timers are best-effort
// and intentionally not durable.
func (e *Engine) Shutdown() {
	e.timers.Stop()
}
