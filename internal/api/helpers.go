package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gentrack/gentrack/internal/service"
)

// pathID parses the {id} route parameter. A non-numeric id behaves like
// a missing target.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// parseLimit reads the optional limit query parameter. Absent limits use
// the default; non-integer values are rejected. Range clamping happens
// in the service layer.
func parseLimit(r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// decodeTargetPayload reads the create-target body. A missing or
// malformed body yields the zero payload, which then fails field
// validation with a precise message instead of a generic parse error.
func decodeTargetPayload(r *http.Request) service.TargetPayload {
	var payload service.TargetPayload
	if r.Body == nil {
		return payload
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return service.TargetPayload{}
	}
	return payload
}
