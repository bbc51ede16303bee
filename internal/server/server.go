// Package server serves the commit log of one repository over HTTP and pushes
// reload notifications to websocket clients.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kurobon/gitlane/internal/state"
)

type Server struct {
	Controller *state.Controller
	Mux        *http.ServeMux

	logger *slog.Logger
	hub    *hub
}

func NewServer(ctrl *state.Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		Controller: ctrl,
		Mux:        http.NewServeMux(),
		logger:     logger,
		hub:        newHub(logger, ctrl.Metrics().Clients),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Mux.HandleFunc("/ping", s.handlePing)
	s.Mux.HandleFunc("/api/log", s.handleLog)
	s.Mux.HandleFunc("/api/commit", s.handleCommit)
	s.Mux.HandleFunc("/api/refs", s.handleRefs)
	s.Mux.HandleFunc("/api/refs/active", s.handleSetActive)
	s.Mux.HandleFunc("/api/reload", s.handleReload)
	s.Mux.HandleFunc("/api/ws", s.handleWebSocket)
	s.Mux.Handle("/metrics", s.Controller.Metrics().Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Mux.ServeHTTP(w, r)
}

// Close disconnects every websocket client.
func (s *Server) Close() {
	s.hub.closeAll()
}

// refresh re-reads the references, reloads the log and tells the clients.
func (s *Server) refresh(ctx context.Context, reason string) (state.Status, error) {
	status, err := s.Controller.RefreshRefs(ctx)
	if err != nil {
		s.logger.Warn("reload failed", "reason", reason, "error", err)
	}
	s.notify(status)
	return status, err
}

func (s *Server) notify(status state.Status) {
	s.hub.broadcast(Message{Type: MessageTypeLog, Data: status})
}
