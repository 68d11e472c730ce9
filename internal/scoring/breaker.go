package scoring

import (
	"context"
	stderrors "errors"

	"rezscan/internal/config"
	"rezscan/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// Breaker wraps scoring service calls with the circuit breaker pattern
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// NewBreaker creates a circuit breaker for one kind of scoring call.
// A disabled configuration yields nil, which executes calls directly.
func NewBreaker[T any](name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *Breaker[T] {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
		IsSuccessful: countsAsHealthy,
	}

	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// countsAsHealthy keeps rejections the service answered deliberately, and
// cancellations made by the caller, from tripping the breaker
func countsAsHealthy(err error) bool {
	if err == nil {
		return true
	}
	if stderrors.Is(err, context.Canceled) {
		return true
	}
	var serverErr *ServerError
	if stderrors.As(err, &serverErr) {
		return serverErr.StatusCode < 500
	}
	return false
}

// Execute executes fn with circuit breaker protection
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}

	result, err := b.cb.Execute(fn)
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return result, errors.NewNetworkError(errors.ErrCodeScoringUnavailable,
			"Scoring service is temporarily unavailable", err).
			WithContext("breaker", b.cb.Name())
	}
	return result, err
}

// Stats returns circuit breaker statistics
func (b *Breaker[T]) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (b *Breaker[T]) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
