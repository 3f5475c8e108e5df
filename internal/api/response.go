// Package api implements the HTTP control plane: routing, JSON
// envelopes and the embedded dashboard UI.
package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the flat error envelope every failure uses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError writes the error envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// OKResponse acknowledges mutations that return no entity.
type OKResponse struct {
	OK bool `json:"ok"`
}

// WriteOK writes {"ok": true}.
func WriteOK(w http.ResponseWriter, status int) {
	WriteJSON(w, status, OKResponse{OK: true})
}
