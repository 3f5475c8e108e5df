package api

import (
	"net/http"

	"github.com/google/uuid"
)

// requestIDHeader carries the correlation id assigned to each request.
const requestIDHeader = "X-Request-Id"

// RequestID assigns a UUID to requests that arrive without one and
// echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// MaxBody caps request body reads. Oversized creates fail inside the
// JSON decoder and surface as field validation errors.
func MaxBody(limit int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}
