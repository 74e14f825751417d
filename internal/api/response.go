package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/synap0/synap/internal/knowledge"
)

// errorBody is the JSON error envelope: {"error": {"code": ..., "message": ...}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
// Uses buffer-first strategy to ensure headers are only sent after successful
// encoding, so an encoding failure can still produce a proper 500.
func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		slog.Debug("failed to write response body", "error", err)
	}
}

// writeError writes the JSON error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeDomainError maps engine errors onto HTTP statuses. Caller mistakes
// become 400s, unavailable backends become 503s, everything else is an
// opaque 500 with the detail kept in the logs.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, knowledge.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "empty_input", "content must not be empty")
	case errors.Is(err, knowledge.ErrSelfRelationship):
		writeError(w, http.StatusBadRequest, "self_relationship", "source and target must differ")
	case errors.Is(err, knowledge.ErrDimensionMismatch):
		writeError(w, http.StatusBadRequest, "dimension_mismatch", "embedding dimension mismatch")
	case errors.Is(err, knowledge.ErrModelUnavailable):
		logger.Error("embedding model unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "model_unavailable", "embedding model unavailable")
	case errors.Is(err, knowledge.ErrStoreUnavailable):
		logger.Error("store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "storage backend unavailable")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
