package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/synap0/synap/internal/indexer"
	"github.com/synap0/synap/internal/knowledge"
)

// maxContentBytes caps the request body of a content submission. Text
// extraction upstream already chunks large files; anything bigger than
// this is a client bug.
const maxContentBytes = 1 << 20

type contentHandler struct {
	engine Engine
	logger *slog.Logger
}

type createContentRequest struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

type createContentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// create handles POST /api/v1/content: runs the full ingestion pipeline
// for one content item.
func (h *contentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createContentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxContentBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "id is required")
		return
	}
	contentType := knowledge.ContentType(req.Type)
	if !contentType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_type", "type must be document, note or url")
		return
	}

	item := knowledge.ContentItem{
		ID:       req.ID,
		Type:     contentType,
		Content:  req.Content,
		Metadata: req.Metadata,
	}
	if err := h.engine.Ingest(r.Context(), ownerID(r), item); err != nil {
		var se *indexer.StageError
		if errors.As(err, &se) {
			h.logger.Warn("ingest failed", "content_id", req.ID, "stage", se.Stage, "error", se.Err)
		}
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, createContentResponse{ID: req.ID, Status: "indexed"})
}

// delete handles DELETE /api/v1/content/{id}: removes the item's vector
// and every edge touching it.
func (h *contentHandler) delete(w http.ResponseWriter, r *http.Request) {
	contentID := r.PathValue("id")
	if contentID == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "content id is required")
		return
	}

	if err := h.engine.Delete(r.Context(), ownerID(r), contentID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
