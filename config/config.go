// Package config provides centralized configuration management for the user web
// frontend with validation, type safety, and clear documentation for SRE/DevOps teams.
//
// Configuration Sources (12-factor app principles):
//  1. Default values (hardcoded)
//  2. .env file (local development via godotenv)
//  3. Environment variables (Kubernetes runtime)
//  4. Helm values → deployment.yaml → env/extraEnv → container environment
//
// Usage:
//
//	import "github.com/duynhne/user-web/config"
//
//	func main() {
//	    cfg := config.Load()
//	    if err := cfg.Validate(); err != nil {
//	        log.Fatal(err)
//	    }
//	    // Use cfg.Service.Port, cfg.UsersAPI.BaseURL, etc.
//	}
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for a microservice
type Config struct {
	Service         ServiceConfig   // Service-specific settings (port, name, version)
	Tracing         TracingConfig   // OpenTelemetry/Tempo configuration
	Profiling       ProfilingConfig // Pyroscope continuous profiling
	Logging         LoggingConfig   // Structured logging (Zap)
	Metrics         MetricsConfig   // Prometheus metrics
	UsersAPI        UsersAPIConfig  // Remote users REST API
	Views           ViewsConfig     // Page rendering switches
	Session         SessionConfig   // Per-browser view state
	ShutdownTimeout time.Duration   // Graceful shutdown budget - from SHUTDOWN_TIMEOUT env (default: 10s, max: 60s)
	// ReadinessDrainDelay: time between failing /ready and stopping the HTTP
	// server. From READINESS_DRAIN_DELAY env (default: 5s, max: 30s).
	ReadinessDrainDelay time.Duration
}

// ServiceConfig defines basic service configuration
type ServiceConfig struct {
	Name    string // Service name (e.g., "auth", "user") - from SERVICE_NAME env
	Port    string // HTTP server port (default: "8080") - from PORT env
	Version string // Service version (optional) - from VERSION env
	Env     string // Environment (dev/staging/production) - from ENV env
}

// TracingConfig defines OpenTelemetry tracing configuration
// Traces are sent to OpenTelemetry Collector for distributed tracing analysis
type TracingConfig struct {
	Enabled            bool    // Enable tracing (default: true) - from TRACING_ENABLED env
	Endpoint           string  // OTel Collector endpoint - from OTEL_COLLECTOR_ENDPOINT env
	SampleRate         float64 // Trace sampling rate (0.0-1.0) - from OTEL_SAMPLE_RATE env
	ServiceName        string  // Service name for traces (defaults to ServiceConfig.Name)
	MaxExportBatchSize int     // Max spans per batch (default: 512)
}

// ProfilingConfig defines Pyroscope continuous profiling configuration
type ProfilingConfig struct {
	Enabled     bool   // Enable profiling (default: true) - from PROFILING_ENABLED env
	Endpoint    string // Pyroscope endpoint - from PYROSCOPE_ENDPOINT env
	ServiceName string // Service name for profiling (defaults to ServiceConfig.Name)
}

// LoggingConfig defines structured logging configuration
type LoggingConfig struct {
	Level  string // Log level: debug, info, warn, error (default: "info") - from LOG_LEVEL env
	Format string // Log format: json, console (default: "json") - from LOG_FORMAT env
}

// MetricsConfig defines Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool   // Enable metrics (default: true) - from METRICS_ENABLED env
	Path    string // Metrics endpoint path (default: "/metrics") - from METRICS_PATH env
}

// UsersAPIConfig defines the remote users REST API the frontend reads and writes
type UsersAPIConfig struct {
	BaseURL string        // Base URL without trailing slash - from USERS_API_BASE_URL env
	Timeout time.Duration // Per-call timeout, 0 disables it - from USERS_API_TIMEOUT env (default: 0)
}

// ViewsConfig defines rendering switches for the list and detail pages
type ViewsConfig struct {
	// ListLoadingIndicator: show a loading block instead of the table while the
	// list fetch is outstanding. From LIST_LOADING_INDICATOR env (default: true).
	ListLoadingIndicator bool
}

// SessionConfig defines the cookie-scoped view state
type SessionConfig struct {
	CookieName string        // Cookie carrying the session id - from SESSION_COOKIE env (default: "uw_session")
	TTL        time.Duration // Idle lifetime of a session - from SESSION_TTL env (default: 30m)
	MaxCount   int           // Sessions held at once, least recently used evicted - from SESSION_MAX env (default: 10000)
}

// Load reads configuration from environment variables with defaults
// It automatically loads .env file if present (for local development)
//
// Priority: .env file < environment variables
// This means ENV vars override .env file values (production takes precedence)
func Load() *Config {
	// Load .env file if exists (for local development)
	// godotenv.Load() fails silently if .env doesn't exist - perfect for production
	_ = godotenv.Load()

	return &Config{
		Service: ServiceConfig{
			Name:    getEnv("SERVICE_NAME", "user-web"),
			Port:    getEnv("PORT", "8080"),
			Version: getEnv("VERSION", "dev"),
			Env:     getEnv("ENV", "development"),
		},
		Tracing: TracingConfig{
			Enabled:            getEnvBool("TRACING_ENABLED", true),
			Endpoint:           getEnv("OTEL_COLLECTOR_ENDPOINT", "otel-collector-opentelemetry-collector.monitoring.svc.cluster.local:4318"),
			SampleRate:         getEnvFloat("OTEL_SAMPLE_RATE", 0.1), // 10% default (production)
			ServiceName:        getEnv("SERVICE_NAME", "user-web"),
			MaxExportBatchSize: getEnvInt("OTEL_BATCH_SIZE", 512),
		},
		Profiling: ProfilingConfig{
			Enabled:     getEnvBool("PROFILING_ENABLED", true),
			Endpoint:    getEnv("PYROSCOPE_ENDPOINT", "http://pyroscope.monitoring.svc.cluster.local:4040"),
			ServiceName: getEnv("SERVICE_NAME", "user-web"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		UsersAPI: UsersAPIConfig{
			BaseURL: strings.TrimRight(getEnv("USERS_API_BASE_URL", "https://jsonplaceholder.typicode.com"), "/"),
			Timeout: getEnvDuration("USERS_API_TIMEOUT", 0),
		},
		Views: ViewsConfig{
			ListLoadingIndicator: getEnvBool("LIST_LOADING_INDICATOR", true),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE", "uw_session"),
			TTL:        getEnvDuration("SESSION_TTL", 30*time.Minute),
			MaxCount:   getEnvInt("SESSION_MAX", 10000),
		},
		ShutdownTimeout:     getEnvDurationBounded("SHUTDOWN_TIMEOUT", 10*time.Second, time.Minute),
		ReadinessDrainDelay: getEnvDurationBounded("READINESS_DRAIN_DELAY", 5*time.Second, 30*time.Second),
	}
}

// Validate performs comprehensive validation of all configuration fields
// Returns detailed error messages for SRE/DevOps troubleshooting
func (c *Config) Validate() error {
	var errors []string

	// Service validation
	if c.Service.Name == "" || c.Service.Name == "unknown" {
		errors = append(errors, "SERVICE_NAME is required (e.g., 'auth', 'user', 'product')")
	}
	if c.Service.Port == "" {
		errors = append(errors, "PORT is required (e.g., '8080')")
	}
	// Validate port is a valid number
	if _, err := strconv.Atoi(c.Service.Port); err != nil {
		errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Service.Port))
	}
	// Validate environment
	validEnvs := []string{"development", "dev", "staging", "stage", "production", "prod"}
	if !contains(validEnvs, c.Service.Env) {
		errors = append(errors, fmt.Sprintf("ENV must be one of %v, got: %s", validEnvs, c.Service.Env))
	}

	// Tracing validation
	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			errors = append(errors, "OTEL_COLLECTOR_ENDPOINT is required when tracing is enabled")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
			errors = append(errors, fmt.Sprintf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got: %.2f", c.Tracing.SampleRate))
		}
		if c.Tracing.ServiceName == "" || c.Tracing.ServiceName == "unknown" {
			errors = append(errors, "SERVICE_NAME is required for tracing (used in Tempo queries)")
		}
	}

	// Profiling validation
	if c.Profiling.Enabled {
		if c.Profiling.Endpoint == "" {
			errors = append(errors, "PYROSCOPE_ENDPOINT is required when profiling is enabled")
		}
		if c.Profiling.ServiceName == "" || c.Profiling.ServiceName == "unknown" {
			errors = append(errors, "SERVICE_NAME is required for profiling (used in Pyroscope UI)")
		}
	}

	// Logging validation
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(c.Logging.Level)) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of %v, got: %s", validLogLevels, c.Logging.Level))
	}
	validLogFormats := []string{"json", "console"}
	if !contains(validLogFormats, strings.ToLower(c.Logging.Format)) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of %v, got: %s", validLogFormats, c.Logging.Format))
	}

	// Users API validation
	if c.UsersAPI.BaseURL == "" {
		errors = append(errors, "USERS_API_BASE_URL is required (e.g., 'https://jsonplaceholder.typicode.com')")
	} else if u, err := url.Parse(c.UsersAPI.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("USERS_API_BASE_URL must be an absolute URL, got: %s", c.UsersAPI.BaseURL))
	}
	if c.UsersAPI.Timeout < 0 {
		errors = append(errors, fmt.Sprintf("USERS_API_TIMEOUT must not be negative, got: %s", c.UsersAPI.Timeout))
	}

	// Session validation
	if c.Session.CookieName == "" {
		errors = append(errors, "SESSION_COOKIE must not be empty")
	}
	if c.Session.TTL <= 0 {
		errors = append(errors, fmt.Sprintf("SESSION_TTL must be positive, got: %s", c.Session.TTL))
	}
	if c.Session.MaxCount <= 0 {
		errors = append(errors, fmt.Sprintf("SESSION_MAX must be positive, got: %d", c.Session.MaxCount))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return contains([]string{"development", "dev"}, c.Service.Env)
}

// Environment parsing helpers. Unset or unparsable values fall back to the
// default so a typo never blocks startup; Validate catches what matters.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAs parses key with parse, returning defaultValue when unset or invalid
func getEnvAs[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := parse(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

// getEnvBool accepts "true", "1" or "yes" as true; anything else is false
func getEnvBool(key string, defaultValue bool) bool {
	return getEnvAs(key, defaultValue, func(s string) (bool, error) {
		return contains([]string{"true", "1", "yes"}, s), nil
	})
}

func getEnvInt(key string, defaultValue int) int {
	return getEnvAs(key, defaultValue, strconv.Atoi)
}

func getEnvFloat(key string, defaultValue float64) float64 {
	return getEnvAs(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// getEnvDuration reads a Go duration such as "5s" or "30m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	return getEnvAs(key, defaultValue, time.ParseDuration)
}

// getEnvDurationBounded reads a Go duration in (0, maxValue]
func getEnvDurationBounded(key string, defaultValue, maxValue time.Duration) time.Duration {
	return getEnvAs(key, defaultValue, func(s string) (time.Duration, error) {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, err
		}
		if d <= 0 || d > maxValue {
			return 0, fmt.Errorf("%s out of range (0, %s]", d, maxValue)
		}
		return d, nil
	})
}

// contains reports whether item is in slice, ignoring case
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
