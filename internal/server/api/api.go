// Package api provides HTTP API handlers for render settings and carousel slots.
package api

import (
	"encoding/json"
	"net/http"
)

// SlotSink receives the slot ID list whenever the slot table changes shape.
type SlotSink interface {
	SetSlots(ids []string)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
