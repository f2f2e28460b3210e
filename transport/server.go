// Package transport exposes the routing engine over HTTP: a WebSocket
// endpoint per surface (anonymous customer widget, JWT-guarded agent
// dashboard), a login endpoint issuing agent tokens and the usual health
// and metrics plumbing.
package transport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/supportmesh/auth"
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/routing"
)

// Options configures the HTTP server.
type Options struct {
	// Addr is the listen address.
	Addr string

	// AllowedOrigins restricts websocket upgrades. "*" or empty allows any
	// origin (development only).
	AllowedOrigins []string

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Server wires the routing engine, auth and observability endpoints onto a
// gin router.
type Server struct {
	engine      *routing.Engine
	credentials auth.CredentialStore
	tokens      *auth.TokenIssuer
	logger      logging.Logger
	upgrader    websocket.Upgrader
	router      *gin.Engine
	addr        string
}

// NewServer builds the HTTP surface for the given engine.
func NewServer(engine *routing.Engine, credentials auth.CredentialStore, tokens *auth.TokenIssuer, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:   ":8080",
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		engine:      engine,
		credentials: credentials,
		tokens:      tokens,
		logger:      opts.Logger,
		addr:        opts.Addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/api/login", s.handleLogin)
	r.GET("/ws/chat", s.handleCustomerWS)
	r.GET("/ws/agent", s.handleAgentWS)

	s.router = r
	return s
}

// WithAddr overrides the listen address.
func WithAddr(addr string) func(o *Options) {
	return func(o *Options) { o.Addr = addr }
}

// WithAllowedOrigins restricts websocket upgrade origins.
func WithAllowedOrigins(origins []string) func(o *Options) {
	return func(o *Options) { o.AllowedOrigins = origins }
}

// WithServerLogger sets the structured logger.
func WithServerLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// Handler exposes the underlying router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run blocks serving HTTP on the configured address.
func (s *Server) Run() error {
	s.logger.Info("http server listening", "addr", s.addr)
	return s.router.Run(s.addr)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		return set[r.Header.Get("Origin")]
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": s.engine.SessionCount(),
		"queue":    s.engine.QueueLen(),
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	identity, err := s.credentials.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.tokens.Issue(*identity)
	if err != nil {
		s.logger.Error("token issue failed", "agent_id", identity.AgentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"agent_id": identity.AgentID,
		"name":     identity.Name,
		"role":     identity.Role,
	})
}

// handleCustomerWS upgrades the anonymous widget connection. The first frame
// must be a restore command carrying the client-persisted session token; an
// empty token gets a fresh server-generated one.
func (s *Server) handleCustomerWS(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("customer upgrade failed", "error", err)
		return
	}
	conn := NewWSConn(ws)
	go s.customerLoop(conn)
}

func (s *Server) customerLoop(conn *WSConn) {
	defer conn.Close()

	sessionID := ""
	defer func() {
		if sessionID != "" {
			s.engine.CustomerDisconnect(sessionID, conn)
		}
	}()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		cmd, err := core.DecodeCustomerFrame(data)
		if err != nil {
			s.logger.Warn("customer frame dropped", "session_id", sessionID, "error", err)
			continue
		}

		if restore, ok := cmd.(core.RestoreSession); ok {
			if sessionID != "" {
				continue
			}
			sessionID = restore.SessionID
			if sessionID == "" {
				sessionID = core.NewID()
			}
			s.engine.CustomerConnect(sessionID, conn)
			continue
		}
		if sessionID == "" {
			s.logger.Warn("customer frame before restore, dropped")
			continue
		}

		switch cmd := cmd.(type) {
		case core.CustomerText:
			s.engine.CustomerMessage(sessionID, cmd.Text)
		case core.HandoffResponse:
			s.engine.CustomerHandoffResponse(sessionID, cmd.Accept)
		case core.SubmitInfo:
			s.engine.CustomerInfo(sessionID, cmd.Info)
		case core.CustomerEnd:
			s.engine.CustomerEnd(sessionID)
		case core.SurveyResponse:
			s.engine.CustomerSurvey(sessionID, cmd.Rating, cmd.Comment)
		}
	}
}

// handleAgentWS upgrades the dashboard connection. The JWT travels either in
// the Authorization header or, because browsers cannot set headers on
// websocket upgrades, in the token query parameter.
func (s *Server) handleAgentWS(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	identity, err := s.tokens.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("agent upgrade failed", "agent_id", identity.AgentID, "error", err)
		return
	}
	conn := NewWSConn(ws)
	go s.agentLoop(identity, conn)
}

func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

func (s *Server) agentLoop(identity *auth.Identity, conn *WSConn) {
	defer conn.Close()
	defer s.engine.AgentDisconnect(identity.AgentID, conn)

	s.engine.AgentConnect(identity.AgentID, identity.Name, identity.Role, conn)

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		cmd, err := core.DecodeAgentFrame(data)
		if err != nil {
			s.logger.Warn("agent frame dropped", "agent_id", identity.AgentID, "error", err)
			continue
		}

		switch cmd := cmd.(type) {
		case core.AcceptRequest:
			s.engine.AgentAccept(identity.AgentID, cmd.SessionID)
		case core.AgentText:
			s.engine.AgentMessage(identity.AgentID, cmd.SessionID, cmd.Text)
		case core.AgentEnd:
			s.engine.AgentEnd(identity.AgentID, cmd.SessionID)
		case core.SetStatus:
			s.engine.AgentSetStatus(identity.AgentID, cmd.Status)
		}
	}
}
