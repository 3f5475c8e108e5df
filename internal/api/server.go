package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gentrack/gentrack/internal/metrics"
	"github.com/gentrack/gentrack/internal/service"
)

// Server wraps the HTTP server serving the JSON API, the Prometheus
// endpoint and the embedded dashboard.
type Server struct {
	httpServer *http.Server
}

// NewServer assembles the router and wraps it in an http.Server bound
// to listenAddress:port.
func NewServer(listenAddress string, port int, svc service.TargetService, mt *metrics.Metrics, maxBodyBytes int64) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", listenAddress, port),
			Handler:           Router(svc, mt, maxBodyBytes),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Router builds the full handler chain. Exposed separately so tests can
// drive it through httptest without binding a port.
func Router(svc service.TargetService, mt *metrics.Metrics, maxBodyBytes int64) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	r.Use(func(next http.Handler) http.Handler {
		return MaxBody(maxBodyBytes, next)
	})

	r.Get("/health", HandleHealth(svc))
	if mt != nil {
		r.Handle("/metrics", mt.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/targets", HandleListTargets(svc))
		r.Post("/targets", HandleCreateTarget(svc))
		r.Delete("/targets/{id}", HandleDeleteTarget(svc))
		r.Post("/targets/{id}/check", HandleManualCheck(svc))
		r.Get("/targets/{id}/history", HandleHistory(svc))
		r.Get("/targets/{id}/incidents", HandleIncidents(svc))
		r.Get("/targets/{id}/reliability", HandleReliability(svc))
		r.Get("/dashboard", HandleDashboard(svc))
	})

	r.NotFound(WebUIHandler().ServeHTTP)

	return r
}

// ListenAndServe blocks serving requests until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Shutdown drains in-flight requests and closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
