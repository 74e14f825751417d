package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/synap0/synap/internal/knowledge"
)

type searchHandler struct {
	engine Engine
	logger *slog.Logger
}

type searchRequest struct {
	Query string   `json:"query"`
	Limit int      `json:"limit"`
	Types []string `json:"types"`
}

type searchHit struct {
	ContentID   string            `json:"contentId"`
	ContentType string            `json:"contentType"`
	Score       float64           `json:"score"`
	Metadata    map[string]string `json:"metadata"`
	CreatedAt   time.Time         `json:"createdAt"`
}

type searchResponse struct {
	Results []searchHit `json:"results"`
}

// search handles POST /api/v1/search: embeds the query and returns the
// owner's most similar content.
func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "empty_input", "query must not be empty")
		return
	}

	var types []knowledge.ContentType
	for _, t := range req.Types {
		ct := knowledge.ContentType(t)
		if !ct.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_type", "unknown content type: "+t)
			return
		}
		types = append(types, ct)
	}

	results, err := h.engine.Search(r.Context(), ownerID(r), req.Query, req.Limit, types...)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	hits := make([]searchHit, 0, len(results))
	for _, res := range results {
		hits = append(hits, searchHit{
			ContentID:   res.ContentID,
			ContentType: res.ContentType.String(),
			Score:       res.Score,
			Metadata:    res.Metadata,
			CreatedAt:   res.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: hits})
}
