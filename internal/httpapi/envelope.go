package httpapi

import (
	"encoding/json"
	"net/http"

	"graphrag/internal/apperr"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError writes a bare {"error": message} envelope for input-validation
// failures. Callers that need an explicit null identifier field alongside the
// error (processing failures, not validation failures) build their own map
// instead of calling this.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{"error": message})
}

// statusForKind maps an apperr.Kind onto the HTTP status spec §7 assigns
// it. Duplicate and Partial are not failures at the transport level — they
// are handled by their own success-path response shapes, not through this
// mapping.
func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.BadRequest:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.UpstreamUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
