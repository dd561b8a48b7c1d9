package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated: health probes and scraping
		r.Get("/health", s.handleHealth)
		if s.gatherer != nil {
			r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
		}

		// WebSocket authenticates with a single-use ticket
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)
			r.Get("/stats", s.handleStats)

			r.Route("/tables", func(r chi.Router) {
				r.Get("/", s.handleListTables)

				r.Route("/{table}", func(r chi.Router) {
					r.Get("/columns", s.handleListColumns)
					r.Get("/rows", s.handleGetRows)
					r.Post("/rows", s.handleInsertRows)
					r.Patch("/rows", s.handleUpdateRows)
					r.Delete("/rows", s.handleDeleteRows)
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.dbMu.Lock()
	err := s.handle.HealthCheck(r.Context())
	s.dbMu.Unlock()

	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":   "unavailable",
			"version":  s.version,
			"database": s.handle.Name(),
			"error":    err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"database": s.handle.Name(),
	})
}
