package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/storefront-labs/storefront-gateway/internal/storefront"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeUpstreamError maps a backend failure onto the gateway response,
// preserving the backend's status code when it sent one.
func writeUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *storefront.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.StatusCode, map[string]any{"error": apiErr.Body})
		return
	}
	writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}
