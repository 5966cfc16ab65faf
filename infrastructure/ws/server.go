// Package ws exposes the chat core over one persistent websocket per client.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/contract"
	"chat-relay/services"
)

const searchTimeout = 5 * time.Second

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), searchTimeout)
}

// Config carries the transport knobs.
type Config struct {
	HeartbeatInterval time.Duration // ping period; pong window is twice this
	MaxMessageSize    int64
	SendBufferSize    int
	AllowedOrigins    []string // empty allows every origin
}

// Server upgrades connections, resolves the caller's identity and hands the
// socket to a Client bound to a fresh session.
type Server struct {
	log      *slog.Logger
	service  services.IChatService
	verifier contract.Verifier // nil trusts the display name supplied at join
	cfg      Config
	upgrader websocket.Upgrader
}

func NewServer(log *slog.Logger, service services.IChatService,
	verifier contract.Verifier, cfg Config) *Server {
	return &Server{
		log:      log,
		service:  service,
		verifier: verifier,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// Handler returns the HTTP surface: the websocket endpoint and a liveness
// probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "websocket endpoint only accepts GET", http.StatusMethodNotAllowed)
		return
	}

	// Identity is established before the session exists; the core trusts the
	// verified name for the connection's lifetime.
	displayName := ""
	if token := r.URL.Query().Get("token"); token != "" && s.verifier != nil {
		name, err := s.verifier.Verify(token)
		if err != nil {
			s.log.Warn("Rejected connection with invalid token", "error", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		displayName = name
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(s.cfg.MaxMessageSize)

	sink := newConnSink(conn, s.cfg.SendBufferSize)
	session := s.service.Connect(displayName, sink)

	client := newClient(s.log, conn, sink, s.service, session, s.cfg.HeartbeatInterval)
	client.run()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}
