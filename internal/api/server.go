// Package api exposes the question answering pipeline over a JSON HTTP
// API, with per-conversation sessions held in memory.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/askdocs/askdocs/internal/assistant"
	"github.com/askdocs/askdocs/internal/session"
)

// Answerer is the part of the assistant the API consumes.
type Answerer interface {
	Query(ctx context.Context, sess *session.Session, query, priorAnswer string) (*assistant.Answer, error)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger     *slog.Logger
	Assistant  Answerer // Required
	MaxHistory int      // History cap for new sessions (0 = session default)
	TrustProxy bool     // Trust X-Real-IP/X-Forwarded-For headers
	RateBurst  int      // Rate limiter burst size per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Assistant == nil {
		return nil, errors.New("assistant is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	qh := &queryHandler{
		assistant: cfg.Assistant,
		sessions:  newRegistry(cfg.MaxHistory),
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/query", qh.query)
	mux.HandleFunc("POST /api/sessions", qh.createSession)
	mux.HandleFunc("GET /api/sessions/{id}/history", qh.getHistory)
	mux.HandleFunc("DELETE /api/sessions/{id}/history", qh.resetHistory)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery → Logging → RateLimit → Routes
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux keeps health probes out of the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
