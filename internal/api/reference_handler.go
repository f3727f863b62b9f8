package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/planvector/drawing-cli/internal/model"
)

// handleReference returns the current reference snapshot, fetching on a
// cold cache.
func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	snap := s.refs.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, snap)
}

// handleReferenceRefresh discards the cache, refetches every category, and
// mirrors the fresh items into the store.
func (s *Server) handleReferenceRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := s.refs.Refresh(ctx)

	var mirrored int64
	for _, category := range model.Categories {
		items := snap.Items(category)
		if len(items) == 0 {
			continue
		}
		n, err := s.store.UpsertReferenceItems(ctx, category, items)
		if err != nil {
			zap.L().Warn("reference mirror failed",
				zap.String("category", string(category)),
				zap.Error(err),
			)
			continue
		}
		mirrored += n
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"snapshot": snap,
		"mirrored": mirrored,
	})
}
