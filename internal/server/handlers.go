package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/kurobon/gitlane/internal/git"
	"github.com/kurobon/gitlane/internal/refs"
	"github.com/kurobon/gitlane/internal/state"
)

const defaultPageSize = 100

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "pong",
		"system":  "gitlane",
	})
}

type LogResponse struct {
	state.Status
	Offset  int              `json:"offset"`
	Entries []state.LogEntry `json:"entries"`
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	offset, err := intParam(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit, err := intParam(r, "limit", defaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entries, status := s.Controller.Entries(offset, limit)
	writeJSON(w, http.StatusOK, LogResponse{
		Status:  status,
		Offset:  offset,
		Entries: entries,
	})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if !plumbing.IsHash(id) {
		writeError(w, http.StatusBadRequest, errors.New("id must be a full commit hash"))
		return
	}

	detail, err := s.Controller.Commit(r.Context(), plumbing.NewHash(id))
	switch {
	case errors.Is(err, git.ErrCommitNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, state.ErrNotLoaded):
		writeError(w, http.StatusServiceUnavailable, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, detail)
	}
}

type RefsResponse struct {
	Refs []refs.Ref   `json:"refs"`
	Tree []*refs.Node `json:"tree"`
}

func (s *Server) handleRefs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, RefsResponse{
		Refs: s.Controller.Refs(),
		Tree: s.Controller.RefTree(),
	})
}

type SetActiveRequest struct {
	// Name is a ref name, or a hierarchy path such as "remotes/origin" when
	// Prefix is set.
	Name   string `json:"name"`
	Active bool   `json:"active"`
	Prefix bool   `json:"prefix"`
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var (
		status state.Status
		err    error
	)
	if req.Prefix {
		status, err = s.Controller.SetPrefixActive(r.Context(), req.Name, req.Active)
	} else {
		status, err = s.Controller.SetRefActive(r.Context(), req.Name, req.Active)
	}
	if errors.Is(err, refs.ErrUnknownRef) {
		writeError(w, http.StatusNotFound, err)
		return
	}

	s.logger.Info("refs toggled", "name", req.Name, "prefix", req.Prefix, "active", req.Active)
	s.notify(status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status, err := s.refresh(r.Context(), "request")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
