package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/nerrad567/pickroute/internal/audit"
	"github.com/nerrad567/pickroute/internal/engine"
)

// playRequest is the body of POST /playback/play. An empty route_id
// continues a user-paused move.
type playRequest struct {
	RouteID string `json:"route_id"`
}

// handleGetPlayback returns the current snapshot.
func (s *Server) handleGetPlayback(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.engine.Play(r.Context(), req.RouteID); err != nil {
		if errors.Is(err, engine.ErrInvalidPlayTarget) {
			writeValidationError(w, err.Error())
			return
		}
		if errors.Is(err, engine.ErrNotRunning) {
			writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "playback engine is not running")
			return
		}
		s.logger.Error("play failed", "route_id", req.RouteID, "error", err)
		writeInternalError(w, "failed to start playback")
		return
	}
	s.recordAudit(r, audit.ActionPlay, req.RouteID, map[string]any{"resume": req.RouteID == ""})
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// The remaining controls are applied asynchronously; the response carries
// the snapshot at the time of the request.

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	current := s.engine.Snapshot().RouteID
	s.engine.Pause()
	s.recordAudit(r, audit.ActionPause, current, nil)
	writeJSON(w, http.StatusAccepted, s.engine.Snapshot())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	current := s.engine.Snapshot().RouteID
	s.engine.Resume()
	s.recordAudit(r, audit.ActionResume, current, nil)
	writeJSON(w, http.StatusAccepted, s.engine.Snapshot())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	current := s.engine.Snapshot().RouteID
	s.engine.Stop()
	s.recordAudit(r, audit.ActionStop, current, nil)
	writeJSON(w, http.StatusAccepted, s.engine.Snapshot())
}
