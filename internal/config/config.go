package config

import (
	"fmt"
	"log"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. REZSCAN_SCORING_BASEURL
const EnvPrefix = "REZSCAN"

// Config holds all application configuration
// Precedence Order:
// 1. Command line flags bound through viper
// 2. Environment Variables (REZSCAN_SCORING_BASEURL, etc.)
// 3. Config File values
// 4. Default values - Lowest priority
type Config struct {
	Scoring       ScoringConfig       `mapstructure:"scoring"`
	Progress      ProgressConfig      `mapstructure:"progress"`
	Report        ReportConfig        `mapstructure:"report"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ScoringConfig describes the external scoring service
type ScoringConfig struct {
	BaseURL    string `mapstructure:"baseURL"`
	MatchPath  string `mapstructure:"matchPath"`
	HealthPath string `mapstructure:"healthPath"`
	// Timeout of zero leaves the request bounded only by its context
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxResponseSize int64         `mapstructure:"maxResponseSize"`

	// Defaults sent with every match request
	SimilarityMetric    string  `mapstructure:"similarityMetric"`
	TopK                int     `mapstructure:"topK"`
	SimilarityThreshold float64 `mapstructure:"similarityThreshold"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// ProgressConfig drives the cosmetic progress indicator shown while a match runs
type ProgressConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Step     int           `mapstructure:"step"`
	Ceiling  int           `mapstructure:"ceiling"`
}

// ReportConfig controls report export
type ReportConfig struct {
	BaseName      string `mapstructure:"baseName"`
	DefaultFormat string `mapstructure:"defaultFormat"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	// Sessions idle longer than this are dropped
	SessionTTL time.Duration `mapstructure:"sessionTTL"`
	// Origins allowed to call the API from a browser
	AllowedOrigins []string `mapstructure:"allowedOrigins"`

	TLS       TLSConfig       `mapstructure:"tls"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS/mTLS configuration
type TLSConfig struct {
	Mode             string   `mapstructure:"mode"`             // TLS mode: "disabled", "server", "mutual"
	CertFile         string   `mapstructure:"certFile"`         // Server certificate file (PEM)
	KeyFile          string   `mapstructure:"keyFile"`          // Server private key file (PEM)
	CAFile           string   `mapstructure:"caFile"`           // CA certificate for client verification (mutual mode)
	MinVersion       string   `mapstructure:"minVersion"`       // Minimum TLS version: "1.2", "1.3"
	CipherSuites     []string `mapstructure:"cipherSuites"`     // Allowed cipher suites (optional)
	ClientAuthPolicy string   `mapstructure:"clientAuthPolicy"` // Client auth policy for mutual mode: "require", "request", "verify"

	AutoReload AutoReloadConfig `mapstructure:"autoReload"`
}

// AutoReloadConfig controls reloading certificates when their files change
type AutoReloadConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DebounceDelay time.Duration `mapstructure:"debounceDelay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int  `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int  `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool `mapstructure:"byIP"`           // Enable per-IP rate limiting
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
	WindowSize       int      `mapstructure:"windowSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig toggles groups of application metrics
type CustomMetricsConfig struct {
	ScoringOperations bool `mapstructure:"scoringOperations"`
	BusinessMetrics   bool `mapstructure:"businessMetrics"`
	TrackRateLimits   bool `mapstructure:"trackRateLimits"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load reads configuration through v. Flags bound to v take precedence.
func Load(v *viper.Viper) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Printf("[CONFIG] Configured environment variable handling with prefix '%s'", EnvPrefix)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/rezscan/")
	v.AddConfigPath("$HOME/.rezscan")
	v.AddConfigPath(".")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Scoring.Validate(); err != nil {
		return err
	}

	if c.Progress.Interval <= 0 {
		return fmt.Errorf("progress interval must be positive")
	}
	if c.Progress.Step <= 0 {
		return fmt.Errorf("progress step must be positive")
	}
	if c.Progress.Ceiling <= 0 || c.Progress.Ceiling >= 100 {
		return fmt.Errorf("progress ceiling must be between 1 and 99, got %d", c.Progress.Ceiling)
	}

	if c.App.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	switch c.Report.DefaultFormat {
	case "pdf", "csv", "markdown":
	default:
		return fmt.Errorf("invalid report format: %s (must be 'pdf', 'csv', or 'markdown')", c.Report.DefaultFormat)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

// Validate checks the scoring service settings
func (s ScoringConfig) Validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("scoring base URL must be an absolute URL, got %q", s.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scoring base URL must use http or https, got %q", u.Scheme)
	}
	if !strings.HasPrefix(s.MatchPath, "/") || !strings.HasPrefix(s.HealthPath, "/") {
		return fmt.Errorf("scoring paths must start with '/'")
	}
	if s.Timeout < 0 {
		return fmt.Errorf("scoring timeout cannot be negative")
	}
	if !slices.Contains(SimilarityMetrics, s.SimilarityMetric) {
		return fmt.Errorf("invalid similarity metric: %s (must be one of %v)", s.SimilarityMetric, SimilarityMetrics)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("topK must be positive")
	}
	if s.SimilarityThreshold < 0 || s.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be within [0,1], got %v", s.SimilarityThreshold)
	}
	if cb := s.CircuitBreaker; cb.Enabled && (cb.FailureThreshold <= 0 || cb.FailureThreshold > 1) {
		return fmt.Errorf("circuit breaker failure threshold must be within (0,1]")
	}
	return nil
}

// SimilarityMetrics lists the metrics the scoring service understands
var SimilarityMetrics = []string{"cosine", "euclidean", "combined"}
