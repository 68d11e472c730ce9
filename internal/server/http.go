package server

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"rezscan/internal/config"
	"rezscan/internal/errors"
	"rezscan/internal/scoring"
	"rezscan/internal/session"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string          `json:"error"`
	Message string          `json:"message,omitempty"`
	Code    string          `json:"code,omitempty"`
	Notice  *session.Notice `json:"notice,omitempty"`
}

// SessionResponse carries a session id with its current snapshot
type SessionResponse struct {
	ID string `json:"id"`
	session.Snapshot
}

// breakerReporter is implemented by scorers that sit behind circuit breakers
type breakerReporter interface {
	Stats() map[string]any
	IsHealthy() bool
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	TLSConfig config.TLSConfig
	// certs is set while certificate auto reload is active
	certs *certReloader

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Scorer is the raw scoring client; sessions use an instrumented wrapper
	Scorer   scoring.Scorer
	Sessions *session.Store

	Logger *errors.Logger

	// out receives the startup banner
	out io.Writer

	// baseCtx outlives requests and is cancelled on shutdown to abort background submissions
	baseCtx    context.Context
	cancelBase context.CancelFunc
	inFlight   sync.WaitGroup
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// ServerConfigFrom derives a ServerConfig from the application configuration
func ServerConfigFrom(cfg *config.Config, version string) ServerConfig {
	// A submission carries a job description plus up to a handful of resumes
	maxRequest := cfg.App.MaxFileSize * 8
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		TLSConfig:      cfg.Server.TLS,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: maxRequest,
		RateLimit:      &cfg.Server.RateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, scorer scoring.Scorer, logger *errors.Logger) *Server {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Scorer:         scorer,
		Logger:         logger,
		out:            os.Stdout,
		baseCtx:        baseCtx,
		cancelBase:     cancel,
	}
}

// newSessionStore builds the store whose controllers score through matcher
func (s *Server) newSessionStore(matcher session.Matcher) *session.Store {
	cfg := s.AppConfig
	factory := func() *session.Controller {
		return session.NewController(session.Options{
			Matcher:        matcher,
			Progress:       cfg.Progress,
			WindowSize:     cfg.App.WindowSize,
			ReportBaseName: cfg.Report.BaseName,
			Logger:         s.Logger,
		})
	}
	return session.NewStore(factory, cfg.Server.SessionTTL)
}

// stopBackground cancels running submissions and waits for them to return
func (s *Server) stopBackground() {
	s.cancelBase()
	s.inFlight.Wait()
}
