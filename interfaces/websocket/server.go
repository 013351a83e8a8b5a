package websocket

import (
	"net/http"
	"strings"

	"optio-backend/application/ports"
	"optio-backend/application/session"
	pkgerrors "optio-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ServerConfig holds WebSocket server configuration
type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	// AllowedOrigins lists accepted Origin headers; "*" accepts any
	AllowedOrigins []string
	// MaxSessionConnections caps the clients attached to one session
	MaxSessionConnections int
}

// DefaultServerConfig returns default WebSocket server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadBufferSize:        1024,
		WriteBufferSize:       1024,
		AllowedOrigins:        []string{"*"},
		MaxSessionConnections: 10,
	}
}

// Server upgrades session subscription requests
type Server struct {
	hub      *Hub
	sessions *session.Manager
	upgrader websocket.Upgrader
	config   ServerConfig
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewServer creates a new WebSocket server
func NewServer(hub *Hub, sessions *session.Manager, config ServerConfig, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *Server {
	if config.MaxSessionConnections <= 0 {
		config.MaxSessionConnections = DefaultServerConfig().MaxSessionConnections
	}
	s := &Server{
		hub:      hub,
		sessions: sessions,
		config:   config,
		errors:   errorHandler,
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// HandleWebSocket attaches a connection to the session named by the {id}
// route parameter and pushes the session's current view.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		s.errors.Handle(w, r, err)
		return
	}

	if n := s.hub.ConnectionCount(sessionID); n >= s.config.MaxSessionConnections {
		s.logger.Warn("Connection limit exceeded for session",
			zap.String("sessionID", sessionID),
			zap.Int("currentConnections", n),
		)
		s.errors.Handle(w, r, pkgerrors.NewRateLimitError(s.config.MaxSessionConnections, "session"))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		s.logger.Error("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(sessionID, s.hub, conn, s.logger)
	client.Start()

	s.logger.Info("New WebSocket connection established",
		zap.String("sessionID", sessionID),
		zap.String("connectionID", client.ID()),
		zap.String("remoteAddr", r.RemoteAddr),
	)

	view, err := sess.View(r.Context())
	if err != nil {
		s.logger.Error("Error fetching story data", zap.String("sessionID", sessionID), zap.Error(err))
		_ = s.hub.SendToSession(sessionID, ports.MessageStatus,
			ports.Status{Message: "Error fetching story data", Level: ports.StatusError})
		return
	}
	if err := s.hub.SendToSession(sessionID, ports.MessageView, view); err != nil {
		s.logger.Warn("Failed to push initial view", zap.String("sessionID", sessionID), zap.Error(err))
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	s.logger.Warn("Rejected WebSocket origin", zap.String("origin", origin))
	return false
}

// Hub returns the server's hub
func (s *Server) Hub() *Hub {
	return s.hub
}
