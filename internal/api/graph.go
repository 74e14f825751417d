package api

import (
	"log/slog"
	"net/http"
)

type graphHandler struct {
	engine Engine
	logger *slog.Logger
}

// get handles GET /api/v1/graph: returns the owner's node and edge
// projection. An owner with no content gets an empty view, not a 404.
func (h *graphHandler) get(w http.ResponseWriter, r *http.Request) {
	view, err := h.engine.GetGraph(r.Context(), ownerID(r))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
