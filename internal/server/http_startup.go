package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rezscan/internal/observability"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests
const shutdownTimeout = 30 * time.Second

// Start runs the HTTP server until ctx is done or the process is signalled
func (s *Server) Start(ctx context.Context) error {
	om, err := s.initializeObservability()
	if err != nil {
		return err
	}
	defer s.shutdownObservability(om)

	httpServer := s.setupHTTPServer(om)
	if err := s.configureTLS(httpServer); err != nil {
		return err
	}
	defer s.stopCertReloader()

	listener, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go s.Sessions.RunJanitor(janitorCtx, s.janitorInterval(), s.Logger)

	s.displayServerInfo(listener.Addr().String())

	return s.serveWithGracefulShutdown(ctx, httpServer, listener)
}

// initializeObservability sets up observability components
func (s *Server) initializeObservability() (*observability.ObservabilityManager, error) {
	obsConfig := observability.GetObservabilityConfig(s.AppConfig, s.Version)
	om, err := observability.NewObservabilityManager(obsConfig, s.AppConfig, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return om, nil
}

// shutdownObservability flushes telemetry before exit
func (s *Server) shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           s.Handler(om),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}
}

// janitorInterval sweeps a few times per session lifetime
func (s *Server) janitorInterval() time.Duration {
	ttl := s.AppConfig.Server.SessionTTL
	if ttl <= 0 {
		return 0
	}
	return max(ttl/4, time.Second)
}

// serveWithGracefulShutdown serves on listener and shuts down on a signal or ctx cancellation
func (s *Server) serveWithGracefulShutdown(ctx context.Context, server *http.Server, listener net.Listener) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", listener.Addr().String(),
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			// Certificates are already loaded into TLSConfig
			err = server.ServeTLS(listener, "", "")
		} else {
			err = server.Serve(listener)
		}

		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.stopBackground()
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		s.Logger.Info("Received shutdown signal, starting graceful shutdown",
			"signal", sig.String())
	case <-ctx.Done():
		s.Logger.Info("Context cancelled, starting graceful shutdown")
	}

	return s.performGracefulShutdown(server)
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}

	s.Logger.Info("Shutting down HTTP server...")
	err := server.Shutdown(shutdownCtx)

	// Pending submissions are abandoned, their sessions return to Idle
	s.stopBackground()

	if err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}
