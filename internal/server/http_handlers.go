package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"rezscan/internal/errors"
	"rezscan/internal/session"
)

// defaultHealthTimeout bounds the scoring health probe when no scoring timeout is set
const defaultHealthTimeout = 5 * time.Second

func (s *Server) healthCheckTimeout() time.Duration {
	if s.AppConfig != nil && s.AppConfig.Scoring.Timeout > 0 {
		return s.AppConfig.Scoring.Timeout
	}
	return defaultHealthTimeout
}

// healthHandler reports this service and the scoring backend behind it
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "rezscan",
		"version": s.Version,
	}

	scoringStatus, healthy := s.checkScoringHealth(r.Context())
	response["scoring"] = scoringStatus

	if breakers, ok := s.Scorer.(breakerReporter); ok {
		response["circuit_breakers"] = breakers.Stats()
		if !breakers.IsHealthy() {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, response)
}

// checkScoringHealth probes the scoring service health endpoint
func (s *Server) checkScoringHealth(ctx context.Context) (map[string]any, bool) {
	if s.Scorer == nil {
		return map[string]any{"available": false, "error": "no scoring client configured"}, false
	}

	ctx, cancel := context.WithTimeout(ctx, s.healthCheckTimeout())
	defer cancel()

	status, err := s.Scorer.Health(ctx)
	if err != nil {
		s.Logger.LogError(err, "Scoring service health check failed")
		return map[string]any{
			"available": false,
			"error":     session.NoticeFor(err).Message,
		}, false
	}
	return map[string]any{
		"available": true,
		"status":    status.Status,
		"message":   status.Message,
	}, true
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "rezscan",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
	}

	if s.Sessions != nil {
		response["sessions"] = map[string]any{
			"active": s.Sessions.Len(),
		}
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if breakers, ok := s.Scorer.(breakerReporter); ok {
		response["circuit_breakers"] = breakers.Stats()
	}

	if s.certs != nil {
		response["tls"] = s.certs.Stats()
	}

	s.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes v with the given status
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.LogError(err, "Failed to encode response", "status", status)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	_ = json.NewEncoder(w).Encode(response)
}

// writeAppError maps err to a status code and writes it with its user notice
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	notice := session.NoticeFor(err)

	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: notice.Message,
		Notice:  &notice,
	}
	if appErr, ok := errors.As(err); ok {
		response.Code = appErr.Code
		if status < http.StatusInternalServerError {
			response.Message = appErr.Message
		}
	}
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "status", status)
	}
	s.writeJSON(w, status, response)
}

// statusFor picks the HTTP status for an application error
func statusFor(err error) int {
	var missing *session.MissingInputError
	if stderrors.As(err, &missing) {
		return http.StatusBadRequest
	}

	appErr, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case errors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case errors.ErrCodeSubmissionInFlight, errors.ErrCodeNoResults:
		return http.StatusConflict
	case errors.ErrCodeInvalidRequest, errors.ErrCodeInvalidFormat, errors.ErrCodeMissingInput:
		return http.StatusBadRequest
	case errors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case errors.ErrCodeScoringUnreachable, errors.ErrCodeScoringUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
