package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
)

// configureTLS sets up TLS configuration based on the mode
func (s *Server) configureTLS(httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		return nil
	case "server", "mutual":
		if s.TLSConfig.AutoReload.Enabled {
			return s.configureReloadingTLS(httpServer)
		}
		tlsConfig, err := s.buildTLSConfig()
		if err != nil {
			return fmt.Errorf("failed to set up TLS: %w", err)
		}
		httpServer.TLSConfig = tlsConfig
		return nil
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}
}

// configureReloadingTLS serves certificates that follow the files on disk
func (s *Server) configureReloadingTLS(httpServer *http.Server) error {
	files := []string{s.TLSConfig.CertFile, s.TLSConfig.KeyFile}
	if s.TLSConfig.Mode == "mutual" {
		files = append(files, s.TLSConfig.CAFile)
	}

	reloader, err := newCertReloader(s.buildTLSConfig, files, s.TLSConfig.AutoReload.DebounceDelay, s.Logger)
	if err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	if err := reloader.Start(); err != nil {
		return err
	}
	s.certs = reloader
	httpServer.TLSConfig = reloader.TLSConfig()
	return nil
}

// stopCertReloader stops watching certificate files, if a watcher runs
func (s *Server) stopCertReloader() {
	if s.certs != nil {
		s.certs.Stop()
	}
}

// buildTLSConfig creates the TLS configuration
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(s.TLSConfig.CertFile, s.TLSConfig.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server cert/key from files: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tlsVersion(s.TLSConfig.MinVersion),
		CipherSuites: cipherSuiteIDs(s.TLSConfig.CipherSuites),
		ClientAuth:   tls.NoClientCert,
	}

	if s.TLSConfig.Mode == "mutual" {
		pool, err := loadCACertificatePool(s.TLSConfig.CAFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
	}

	return tlsConfig, nil
}

// loadCACertificatePool loads the CA certificate pool for client verification
func loadCACertificatePool(caFile string) (*x509.CertPool, error) {
	if caFile == "" {
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode")
	}
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}

	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caCert); !ok {
		return nil, fmt.Errorf("failed to append CA cert from %s", caFile)
	}
	return pool, nil
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}

// cipherSuiteIDs maps configured names to IDs, skipping unknown names. Empty means Go's defaults.
func cipherSuiteIDs(names []string) []uint16 {
	if len(names) == 0 {
		return nil
	}
	known := make(map[string]uint16)
	for _, suite := range tls.CipherSuites() {
		known[suite.Name] = suite.ID
	}

	ids := make([]uint16, 0, len(names))
	for _, name := range names {
		if id, ok := known[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
