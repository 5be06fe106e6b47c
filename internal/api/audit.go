package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nerrad567/pickroute/internal/audit"
)

// AuditLog stores operator actions. *audit.SQLiteRepository implements it.
type AuditLog interface {
	Create(ctx context.Context, e *audit.Entry) error
	List(ctx context.Context, filter audit.Filter) (*audit.ListResult, error)
}

// recordAudit writes an entry for a successful operator action. Failures
// are logged and never fail the request.
func (s *Server) recordAudit(r *http.Request, action, routeID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	e := &audit.Entry{
		Action:     action,
		RouteID:    routeID,
		Source:     audit.SourceAPI,
		RemoteAddr: r.RemoteAddr,
		Details:    details,
	}
	if err := s.audit.Create(context.WithoutCancel(r.Context()), e); err != nil {
		s.logger.Warn("audit write failed", "action", action, "error", err)
	}
}

// handleListAudit returns operator actions, newest first.
//
// Query parameters:
//   - action: filter by action (play, pause, route.create, ...)
//   - route_id: filter by route
//   - limit: page size, 1..200 (default 50)
//   - offset: entries to skip
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit log is not available")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:  q.Get("action"),
		RouteID: q.Get("route_id"),
	}
	if len(filter.RouteID) > maxIDLen {
		writeBadRequest(w, "invalid route ID")
		return
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > audit.MaxLimit {
			writeBadRequest(w, "limit must be between 1 and 200")
			return
		}
		filter.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		writeInternalError(w, "failed to list audit log")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
