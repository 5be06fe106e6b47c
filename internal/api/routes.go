package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/pickroute/internal/audit"
	"github.com/nerrad567/pickroute/internal/route"
)

// maxIDLen limits path and query identifiers.
const maxIDLen = 100

// routeRequest is the body of create and update calls.
type routeRequest struct {
	ID    string       `json:"id,omitempty"`
	Name  string       `json:"name"`
	Moves []route.Move `json:"moves"`
}

func routeID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxIDLen {
		writeBadRequest(w, "invalid route ID")
		return "", false
	}
	return id, true
}

// writeRouteError maps catalogue errors to responses.
func writeRouteError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, route.ErrNotFound):
		writeNotFound(w, "route not found")
	case errors.Is(err, route.ErrExists):
		writeConflict(w, err.Error())
	case errors.Is(err, route.ErrInvalidRoute), errors.Is(err, route.ErrInvalidName),
		errors.Is(err, route.ErrNoMoves), errors.Is(err, route.ErrInvalidMove):
		writeValidationError(w, err.Error())
	default:
		writeInternalError(w, fallback)
	}
}

// handleListRoutes returns every route sorted by name.
func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := s.routes.ListRoutes(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list routes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": routes, "count": len(routes)})
}

func (s *Server) handleGetRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(w, r)
	if !ok {
		return
	}
	rt, err := s.routes.GetRoute(r.Context(), id)
	if err != nil {
		writeRouteError(w, err, "failed to get route")
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

func (s *Server) handleCreateRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.ID) > maxIDLen {
		writeBadRequest(w, "invalid route ID")
		return
	}

	rt := &route.Route{ID: req.ID, Name: req.Name, Moves: req.Moves}
	if err := s.routes.CreateRoute(r.Context(), rt); err != nil {
		writeRouteError(w, err, "failed to create route")
		return
	}
	s.recordAudit(r, audit.ActionRouteCreate, rt.ID, map[string]any{"name": rt.Name, "moves": len(rt.Moves)})
	writeJSON(w, http.StatusCreated, rt)
}

// handleUpdateRoute replaces the name and moves of a route.
func (s *Server) handleUpdateRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(w, r)
	if !ok {
		return
	}
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	existing, err := s.routes.GetRoute(r.Context(), id)
	if err != nil {
		writeRouteError(w, err, "failed to get route")
		return
	}
	existing.Name = req.Name
	existing.Moves = req.Moves
	if err := s.routes.UpdateRoute(r.Context(), existing); err != nil {
		writeRouteError(w, err, "failed to update route")
		return
	}
	s.recordAudit(r, audit.ActionRouteUpdate, existing.ID, map[string]any{"name": existing.Name, "moves": len(existing.Moves)})
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteRoute removes a route. A session already playing it keeps
// its own copy.
func (s *Server) handleDeleteRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(w, r)
	if !ok {
		return
	}
	if err := s.routes.DeleteRoute(r.Context(), id); err != nil {
		writeRouteError(w, err, "failed to delete route")
		return
	}
	s.recordAudit(r, audit.ActionRouteDelete, id, nil)
	w.WriteHeader(http.StatusNoContent)
}
