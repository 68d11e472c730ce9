package observability

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"rezscan/internal/config"
	"rezscan/internal/errors"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusConfig holds Prometheus-specific configuration
type PrometheusConfig struct {
	Enabled  bool
	Endpoint string
	Port     string
}

// SetupPrometheusExporter creates and configures a Prometheus metrics exporter
func SetupPrometheusExporter(config PrometheusConfig) (metric.Reader, *http.ServeMux, error) {
	if !config.Enabled {
		return nil, nil, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	// The OTel exporter registers with the default registry promhttp serves
	mux := http.NewServeMux()
	mux.Handle(config.Endpoint, promhttp.Handler())

	return exporter, mux, nil
}

// StartPrometheusServer binds the scrape port and serves mux in the background.
// Bind errors are returned, later serve errors are logged.
func StartPrometheusServer(mux *http.ServeMux, cfg PrometheusConfig, logger *errors.Logger) (*http.Server, error) {
	if mux == nil {
		return nil, nil
	}

	addr := ":" + cfg.Port
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "cannot bind Prometheus port", err).
			WithContext("addr", addr)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Prometheus metrics server started", "addr", addr, "endpoint", cfg.Endpoint)

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.LogError(err, "Prometheus server error", "addr", addr)
		}
	}()

	return server, nil
}

// GetPrometheusConfig creates Prometheus configuration from provided config
func GetPrometheusConfig(cfg *config.Config) PrometheusConfig {
	if cfg != nil {
		return PrometheusConfig{
			Enabled:  cfg.Observability.Prometheus.Enabled,
			Endpoint: cfg.Observability.Prometheus.Endpoint,
			Port:     cfg.Observability.Prometheus.Port,
		}
	}

	return PrometheusConfig{
		Enabled:  false,
		Endpoint: "/metrics",
		Port:     "9090",
	}
}
