// Package server exposes the REST surface: auth, chat, conversation
// history, task CRUD, health, and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/normanking/taskdeck/internal/auth"
	"github.com/normanking/taskdeck/internal/brain"
	"github.com/normanking/taskdeck/internal/chat"
	"github.com/normanking/taskdeck/internal/config"
	"github.com/normanking/taskdeck/internal/logging"
	"github.com/normanking/taskdeck/internal/task"
)

// Version is stamped at build time.
var Version = "dev"

// maxBodyBytes caps request bodies well above the 10k-char message
// limit to leave room for JSON framing.
const maxBodyBytes = 64 * 1024

// Server is the HTTP server over the chat, auth, and task services.
type Server struct {
	cfg        *config.Config
	auth       *auth.Service
	chat       *chat.Service
	tasks      task.Repository
	limiter    *auth.RateLimiter
	breaker    *brain.CircuitBreaker
	httpServer *http.Server
	startTime  time.Time
	log        *logging.Logger
}

// New creates the server and wires all routes. The rate limiter is
// shared with the cleanup scheduler; the circuit breaker is the
// agent loop's, exposed read-only on the health endpoint.
func New(cfg *config.Config, authSvc *auth.Service, chatSvc *chat.Service, tasks task.Repository, limiter *auth.RateLimiter, breaker *brain.CircuitBreaker, log *logging.Logger) *Server {
	if limiter == nil {
		limiter = auth.NewRateLimiter()
	}
	s := &Server{
		cfg:       cfg,
		auth:      authSvc,
		chat:      chatSvc,
		tasks:     tasks,
		limiter:   limiter,
		breaker:   breaker,
		startTime: time.Now(),
		log:       log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/auth/signup", s.signupHandler)
	mux.HandleFunc("POST /api/auth/signin", s.signinHandler)
	mux.HandleFunc("POST /api/auth/logout", s.logoutHandler)

	mux.HandleFunc("POST /api/{user_id}/chat", s.requireUser(s.chatHandler))
	mux.HandleFunc("GET /api/{user_id}/conversations", s.requireUser(s.conversationsHandler))

	mux.HandleFunc("GET /api/{user_id}/tasks", s.requireUser(s.listTasksHandler))
	mux.HandleFunc("POST /api/{user_id}/tasks", s.requireUser(s.addTaskHandler))
	mux.HandleFunc("PATCH /api/{user_id}/tasks/{task_id}/complete", s.requireUser(s.completeTaskHandler))
	mux.HandleFunc("PUT /api/{user_id}/tasks/{task_id}", s.requireUser(s.updateTaskHandler))
	mux.HandleFunc("DELETE /api/{user_id}/tasks/{task_id}", s.requireUser(s.deleteTaskHandler))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.instrument(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler reports liveness plus the model circuit state, so an
// operator can tell from one probe whether chat is on the model path
// or degraded to the fallback engine.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "healthy",
		"version":   Version,
		"uptime":    time.Since(s.startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if s.breaker != nil {
		body["model"] = s.breaker.Stats()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeBody decodes a bounded JSON request body.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
