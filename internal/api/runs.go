package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/pickroute/internal/history"
)

// maxRunsLimit caps the limit query parameter.
const maxRunsLimit = 500

// handleListRuns returns the most recent runs of a route.
//
// Query parameters:
//   - limit: number of runs, 1..500 (default 50)
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	id, ok := routeID(w, r)
	if !ok {
		return
	}
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "run history is not available")
		return
	}

	limit := history.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			writeBadRequest(w, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	runs, err := s.runs.ListByRoute(r.Context(), id, limit)
	if err != nil {
		writeInternalError(w, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}
