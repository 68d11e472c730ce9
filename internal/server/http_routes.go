package server

import (
	"net/http"
	"slices"
	"strings"

	"rezscan/internal/observability"
	"rezscan/internal/scoring"
)

// Handler wires sessions to the scorer and returns the instrumented route tree.
// om may be nil, in which case nothing is traced.
func (s *Server) Handler(om *observability.ObservabilityManager) http.Handler {
	if s.Sessions == nil {
		s.Sessions = s.newSessionStore(scoring.Instrument(s.Scorer, om))
	}
	mux := s.setupRoutes(om)
	return om.HTTPMiddleware()(s.corsMiddleware(mux))
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	mux := http.NewServeMux()

	rateLimited := s.createRateLimitMiddleware(om)
	limitBody := s.requestSizeLimitMiddleware()
	tagSession := observability.SessionMiddleware("id")

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	mux.Handle("POST /sessions", rateLimited(s.createSessionHandler(om)))
	mux.Handle("GET /sessions/{id}", tagSession(http.HandlerFunc(s.getSessionHandler)))
	mux.Handle("DELETE /sessions/{id}", tagSession(http.HandlerFunc(s.deleteSessionHandler)))
	mux.Handle("POST /sessions/{id}/submit",
		rateLimited(tagSession(limitBody(s.createSubmitHandler(om)))),
	)
	mux.Handle("GET /sessions/{id}/results", tagSession(http.HandlerFunc(s.resultsHandler)))
	mux.Handle("POST /sessions/{id}/toggle", tagSession(http.HandlerFunc(s.toggleHandler)))
	mux.Handle("GET /sessions/{id}/heatmap", tagSession(http.HandlerFunc(s.heatmapHandler)))
	mux.Handle("GET /sessions/{id}/report", tagSession(s.createReportHandler(om)))
	mux.Handle("POST /sessions/{id}/reset", tagSession(http.HandlerFunc(s.resetHandler)))

	return mux
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware lets the configured browser origins call the API
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	var allowed []string
	if s.AppConfig != nil {
		allowed = s.AppConfig.Server.AllowedOrigins
	}
	if len(allowed) == 0 {
		return next
	}
	wildcard := slices.Contains(allowed, "*")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (wildcard || slices.Contains(allowed, origin)) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Expose-Headers", "Content-Disposition")
			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", strings.Join([]string{
					http.MethodGet, http.MethodPost, http.MethodDelete,
				}, ", "))
				h.Set("Access-Control-Allow-Headers", "Content-Type")
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
