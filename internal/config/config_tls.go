package config

import "fmt"

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	if err := validateTLSMode(tls); err != nil {
		return err
	}

	if err := validateTLSVersion(tls); err != nil {
		return err
	}

	return validateAutoReload(tls.AutoReload)
}

// validateAutoReload validates certificate reload settings
func validateAutoReload(r AutoReloadConfig) error {
	if r.DebounceDelay < 0 {
		return fmt.Errorf("invalid autoReload debounceDelay: %s (must not be negative)", r.DebounceDelay)
	}
	return nil
}

// validateTLSMode validates the TLS mode and associated requirements
func validateTLSMode(tls TLSConfig) error {
	switch tls.Mode {
	case "disabled":
		return nil
	case "server":
		return validateCertAndKeyRequired(tls, "server mode")
	case "mutual":
		if err := validateCertAndKeyRequired(tls, "mutual mode"); err != nil {
			return err
		}
		if tls.CAFile == "" {
			return fmt.Errorf("CA certificate is required for mutual TLS mode (set caFile)")
		}
		return validateClientAuthPolicy(tls)
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}
}

// validateCertAndKeyRequired checks that both certificate and key are provided
func validateCertAndKeyRequired(tls TLSConfig, mode string) error {
	if tls.CertFile == "" || tls.KeyFile == "" {
		return fmt.Errorf("TLS certificate and key files are required for %s", mode)
	}
	return nil
}

// validateClientAuthPolicy validates the client authentication policy
func validateClientAuthPolicy(tls TLSConfig) error {
	switch tls.ClientAuthPolicy {
	case "require", "request", "verify", "":
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", tls.ClientAuthPolicy)
	}
}

// validateTLSVersion validates the TLS version configuration
func validateTLSVersion(tls TLSConfig) error {
	switch tls.MinVersion {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tls.MinVersion)
	}
}
