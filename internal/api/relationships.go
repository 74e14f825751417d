package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type relationshipHandler struct {
	engine Engine
	logger *slog.Logger
}

type createRelationshipRequest struct {
	SourceID string         `json:"sourceId"`
	TargetID string         `json:"targetId"`
	Type     string         `json:"type"`
	Metadata map[string]any `json:"metadata"`
}

// create handles POST /api/v1/relationships: stores an explicit,
// caller-authored edge between two content items.
func (h *relationshipHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}
	if req.SourceID == "" || req.TargetID == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "sourceId and targetId are required")
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "missing_type", "type is required")
		return
	}

	err := h.engine.CreateRelationship(r.Context(), ownerID(r),
		req.SourceID, req.TargetID, req.Type, req.Metadata)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}
