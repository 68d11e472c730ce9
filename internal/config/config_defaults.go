package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Scoring service
	v.SetDefault("scoring.baseURL", "http://127.0.0.1:5000")
	v.SetDefault("scoring.matchPath", "/api/match")
	v.SetDefault("scoring.healthPath", "/api/health")
	v.SetDefault("scoring.timeout", time.Duration(0)) // no client side timeout
	v.SetDefault("scoring.maxResponseSize", 8*1024*1024)
	v.SetDefault("scoring.similarityMetric", "cosine")
	v.SetDefault("scoring.topK", 5)
	v.SetDefault("scoring.similarityThreshold", 0.3)

	v.SetDefault("scoring.circuitBreaker.enabled", true)
	v.SetDefault("scoring.circuitBreaker.maxRequests", 1)
	v.SetDefault("scoring.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("scoring.circuitBreaker.timeout", 30*time.Second)
	v.SetDefault("scoring.circuitBreaker.minRequests", 3)
	v.SetDefault("scoring.circuitBreaker.failureThreshold", 0.6)

	// Progress indicator
	v.SetDefault("progress.interval", 500*time.Millisecond)
	v.SetDefault("progress.step", 10)
	v.SetDefault("progress.ceiling", 90)

	// Report export
	v.SetDefault("report.baseName", "detailed_match_table")
	v.SetDefault("report.defaultFormat", "pdf")

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.sessionTTL", 30*time.Minute)
	v.SetDefault("server.allowedOrigins", []string{})

	v.SetDefault("server.tls.mode", "disabled") // disabled, server, mutual
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.cipherSuites", []string{})
	v.SetDefault("server.tls.clientAuthPolicy", "require")
	v.SetDefault("server.tls.autoReload.enabled", false)
	v.SetDefault("server.tls.autoReload.debounceDelay", time.Second)

	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 16*1024*1024) // 16MB, matches the scoring service upload cap
	v.SetDefault("app.windowSize", 5)

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "rezscan")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	v.SetDefault("observability.customMetrics.scoringOperations", true)
	v.SetDefault("observability.customMetrics.businessMetrics", true)
	v.SetDefault("observability.customMetrics.trackRateLimits", true)

	v.SetDefault("observability.console.prettyPrint", true)

	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}
