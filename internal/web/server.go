// Package web serves the admin HTTP API. Each request resolves the caller's
// session, obtains that session's cached store connection, and runs one
// key operation against it.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kvadminer/kvadminer/internal/audit"
	"github.com/kvadminer/kvadminer/internal/keys"
	"github.com/kvadminer/kvadminer/internal/metrics"
	"github.com/kvadminer/kvadminer/internal/store"
)

// Sessions hands out per-session store connections.
type Sessions interface {
	GetOrCreate(sessionID string, ep store.Endpoint) (*redis.Client, error)
	Len() int
}

// ServerConfig holds tunable parameters for the HTTP server.
type ServerConfig struct {
	ListenAddr      string        // address to listen on, e.g. ":8080"
	StaticDir       string        // served under /static/; empty disables it
	CookieSecure    bool          // set the Secure flag on the session cookie
	DefaultPageSize int           // page_size when the query omits it
	ReadTimeout     time.Duration // http.Server read timeout
	WriteTimeout    time.Duration // http.Server write timeout
}

// DefaultServerConfig returns a ServerConfig with defaults for local use.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      ":8080",
		StaticDir:       "static",
		DefaultPageSize: 50,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    30 * time.Second,
	}
}

// Server is the admin HTTP server.
type Server struct {
	config     ServerConfig
	sessions   Sessions
	lister     *keys.Lister
	audit      audit.Publisher
	log        zerolog.Logger
	httpServer *http.Server
	startedAt  time.Time
}

// NewServer creates a Server. A nil publisher disables audit events.
func NewServer(config ServerConfig, sessions Sessions, lister *keys.Lister, pub audit.Publisher, log zerolog.Logger) *Server {
	if pub == nil {
		pub = audit.Nop{}
	}
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = DefaultServerConfig().DefaultPageSize
	}
	s := &Server{
		config:    config,
		sessions:  sessions,
		lister:    lister,
		audit:     pub,
		log:       log.With().Str("component", "web").Logger(),
		startedAt: time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         config.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Handler returns the routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /get/{key...}", s.instrument("get", s.handleGet))
	mux.HandleFunc("POST /set", s.instrument("set", s.handleSet))
	mux.HandleFunc("DELETE /delete/{key...}", s.instrument("delete", s.handleDelete))
	mux.HandleFunc("GET /keys", s.instrument("keys", s.handleKeys))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	if s.config.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.config.StaticDir))))
	}
	return mux
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", s.config.ListenAddr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web: http server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("web: shutdown: %w", err)
	}
	s.log.Info().Msg("http server stopped")
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.config.StaticDir != "" {
		http.Redirect(w, r, "/static/", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"service": "kvadminer"})
}

// handleHealth reports liveness, the number of cached sessions and uptime.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
		Uptime   string `json:"uptime"`
	}{
		Status:   "ok",
		Sessions: s.sessions.Len(),
		Uptime:   time.Since(s.startedAt).Round(time.Second).String(),
	}
	writeJSON(w, http.StatusOK, resp)
}
