package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks fills values that depend on other settings
func (c *Config) applyFallbacks() {
	c.Scoring.BaseURL = strings.TrimRight(c.Scoring.BaseURL, "/")
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}

	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}

	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"REZSCAN_SCORING_BASEURL",
		"REZSCAN_SCORING_TIMEOUT",
		"REZSCAN_SCORING_SIMILARITYMETRIC",
		"REZSCAN_SERVER_PORT",
		"REZSCAN_SERVER_HOST",
		"REZSCAN_APP_LOGLEVEL",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			log.Printf("[CONFIG]   %s=%s", envVar, value)
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Scoring Service: %s", c.Scoring.BaseURL)
	log.Printf("[CONFIG] Scoring Defaults: metric=%s topK=%d threshold=%.2f",
		c.Scoring.SimilarityMetric, c.Scoring.TopK, c.Scoring.SimilarityThreshold)
	if c.Scoring.Timeout > 0 {
		log.Printf("[CONFIG] Scoring Timeout: %s", c.Scoring.Timeout)
	} else {
		log.Println("[CONFIG] Scoring Timeout: none")
	}
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}
