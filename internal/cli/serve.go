package cli

import (
	"rezscan/internal/scoring"
	"rezscan/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for match sessions",
	Long: `Start an HTTP server that exposes match sessions over a REST API.
A browser or other client creates a session, uploads files to it and then
reads the ranked results, skill comparison and report from it.

Available endpoints:
- POST /sessions: Create a session
- POST /sessions/{id}/submit: Upload a job description and resumes (multipart)
- GET /sessions/{id}: Session state and synthetic progress
- GET /sessions/{id}/results, /heatmap, /report: Result views
- POST /sessions/{id}/toggle, /reset; DELETE /sessions/{id}
- GET /health: Health check including the scoring service
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server, mutual
- Use --cert-file and --key-file for TLS certificates
- Use --ca-file for mutual TLS client certificate verification
- Use --tls-auto-reload to pick up rotated certificate files without a restart`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	serveCmd.Flags().String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")
	serveCmd.Flags().Bool("tls-auto-reload", false, "Reload certificate files when they change (overrides config)")

	bindFlag(serveCmd, "server.port", "port", false)
	bindFlag(serveCmd, "server.host", "host", false)
	bindFlag(serveCmd, "server.tls.mode", "tls-mode", false)
	bindFlag(serveCmd, "server.tls.certFile", "cert-file", false)
	bindFlag(serveCmd, "server.tls.keyFile", "key-file", false)
	bindFlag(serveCmd, "server.tls.caFile", "ca-file", false)
	bindFlag(serveCmd, "server.tls.autoReload.enabled", "tls-auto-reload", false)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	client := scoring.NewClient(cfg.Scoring, logger)
	srv := server.NewServer(cfg, server.ServerConfigFrom(cfg, Version), client, logger)
	return srv.Start(cmd.Context())
}
