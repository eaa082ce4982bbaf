package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Harshitk-cp/credo/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeKindError maps a tagged error to its HTTP status. The response
// carries the stable kind and the message; cause chains stay server-side.
func writeKindError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	writeJSON(w, kindStatus(kind), map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}

func kindStatus(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindOverloaded:
		return http.StatusTooManyRequests
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindEmbeddingUnavailable,
		domain.KindCategorizationUnavailable,
		domain.KindExtractionUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
