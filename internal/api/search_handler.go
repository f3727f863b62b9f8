package api

import (
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/planvector/drawing-cli/internal/rag"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

// handleSearch ranks reference items against the query and returns the top
// matches per category.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, eris.New("missing q parameter"))
		return
	}

	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, eris.Errorf("invalid limit: %q", v))
			return
		}
		limit = parsed
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	snap := s.refs.Snapshot(r.Context())
	rel := rag.FindRelevant(query, snap, limit)

	writeJSON(w, http.StatusOK, map[string]any{
		"query":           query,
		"results":         rel,
		"is_mock":         snap.IsMock,
		"partial_success": snap.PartialSuccess,
	})
}
