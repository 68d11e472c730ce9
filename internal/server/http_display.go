package server

import "fmt"

// displayServerInfo prints where the server listens and what it exposes
func (s *Server) displayServerInfo(addr string) {
	scheme := "http"
	if s.TLSConfig.Mode == "server" || s.TLSConfig.Mode == "mutual" {
		scheme = "https"
	}
	fmt.Fprintf(s.out, "Starting server on %s://%s\n", scheme, addr)
	s.displayEndpoints()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Fprintln(s.out, "Available endpoints:")
	fmt.Fprintln(s.out, "  GET    /health                  - Health check (includes scoring service)")
	fmt.Fprintln(s.out, "  GET    /stats                   - Server statistics")
	fmt.Fprintln(s.out, "  POST   /sessions                - Create a session")
	fmt.Fprintln(s.out, "  GET    /sessions/{id}           - Session state and progress")
	fmt.Fprintln(s.out, "  POST   /sessions/{id}/submit    - Upload job description and resumes")
	fmt.Fprintln(s.out, "  GET    /sessions/{id}/results   - Ranked matches")
	fmt.Fprintln(s.out, "  POST   /sessions/{id}/toggle    - Toggle top 5 / all matches")
	fmt.Fprintln(s.out, "  GET    /sessions/{id}/heatmap   - Skill match comparison")
	fmt.Fprintln(s.out, "  GET    /sessions/{id}/report    - Download report (?format=pdf|csv|markdown)")
	fmt.Fprintln(s.out, "  POST   /sessions/{id}/reset     - Start a new analysis")
	fmt.Fprintln(s.out, "  DELETE /sessions/{id}           - Drop a session")
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Fprintf(s.out, "Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Fprintln(s.out, "Request size limit: DISABLED")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimiter != nil {
		fmt.Fprintf(s.out, "Rate limiting: ENABLED (%d requests/min per IP, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	} else {
		fmt.Fprintln(s.out, "Rate limiting: DISABLED")
	}
}
