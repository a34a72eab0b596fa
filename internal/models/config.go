// Package models - Service configuration and operational settings.
// This file defines the configuration structures for every gateway component.
//
// Configuration Philosophy:
// - Hierarchical configuration grouped by component (server, upstream, security, etc.)
// - Defaults that match the reference deployment (port 3000, 100 requests per minute)
// - Validation catches misconfigurations before the server starts
// - Secrets are never given defaults and must come from file or environment
package models

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Usage ledger backend constants
const (
	UsageTypeMemory   = "memory"
	UsageTypeSQLite   = "sqlite"
	UsageTypePostgres = "postgres"
	UsageTypeRedis    = "redis"
)

// Rate limit key strategies
const (
	KeyStrategyCredential = "credential"
	KeyStrategyGlobal     = "global"
	KeyStrategyClientIP   = "client_ip"
)

// DefaultUpstreamBaseURL is the WeatherAPI.com v1 endpoint.
const DefaultUpstreamBaseURL = "https://api.weatherapi.com/v1"

// Config is the root configuration structure containing all service settings.
//
// Configuration Structure:
// - Server: HTTP listener, timeouts and CORS
// - Upstream: weather provider endpoint and secret
// - Security: gateway secret and rate limiting
// - Usage: per-request usage ledger
// - Logging, Metrics, Observability: operational concerns
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream" json:"upstream"`
	Security      SecurityConfig      `yaml:"security" json:"security"`
	Usage         UsageConfig         `yaml:"usage" json:"usage"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
	CORS         CORSConfig    `yaml:"cors" json:"cors"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age"`
}

// UpstreamConfig describes the weather provider. APIKey is the provider secret
// and is distinct from the gateway's own Security.APIKey.
type UpstreamConfig struct {
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	APIKey    string        `yaml:"api_key" json:"-"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
}

type SecurityConfig struct {
	APIKey    string          `yaml:"api_key" json:"-"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig configures the rolling-window limiter. Requests accepted
// requests are allowed per Window, counted per key chosen by KeyStrategy.
type RateLimitConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	Requests    int           `yaml:"requests" json:"requests"`
	Window      time.Duration `yaml:"window" json:"window"`
	KeyStrategy string        `yaml:"key_strategy" json:"key_strategy"`
}

type UsageConfig struct {
	Enabled   bool              `yaml:"enabled" json:"enabled"`
	Type      string            `yaml:"type" json:"type"`
	DSN       string            `yaml:"dsn" json:"-"`
	MaxEvents int               `yaml:"max_events" json:"max_events"`
	Redis     RedisConfig       `yaml:"redis" json:"redis"`
	Options   map[string]string `yaml:"options" json:"options"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"-"`
	DB       int           `yaml:"db" json:"db"`
	Prefix   string        `yaml:"prefix" json:"prefix"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration matching the reference deployment.
//
// Default Values Rationale:
// - Port 3000 and 0.0.0.0: what the mobile client expects out of the box
// - 100 requests per 60 seconds: the reference quota
// - Memory usage ledger: useful stats without external dependencies
// - Metrics on 9090: separate listener so /metrics is never exposed with the API
//
// Both secrets are left empty on purpose; Validate rejects the config until
// they are supplied.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         3000,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Accept", "Content-Type", "X-API-Key"},
				MaxAge:         86400,
			},
		},
		Upstream: UpstreamConfig{
			BaseURL:   DefaultUpstreamBaseURL,
			UserAgent: "weatherproxy",
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled:     true,
				Requests:    100,
				Window:      60 * time.Second,
				KeyStrategy: KeyStrategyCredential,
			},
		},
		Usage: UsageConfig{
			Enabled:   true,
			Type:      UsageTypeMemory,
			MaxEvents: 10000,
			Redis: RedisConfig{
				Prefix: "weatherproxy:usage",
				TTL:    48 * time.Hour,
			},
			Options: make(map[string]string),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "weatherproxy",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Upstream.Validate(); err != nil {
		return fmt.Errorf("invalid upstream config: %w", err)
	}

	if err := c.Security.Validate(); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}

	if err := c.Usage.Validate(); err != nil {
		return fmt.Errorf("invalid usage config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 {
		return errors.New("read timeout cannot be negative")
	}

	if sc.WriteTimeout < 0 {
		return errors.New("write timeout cannot be negative")
	}

	if sc.IdleTimeout < 0 {
		return errors.New("idle timeout cannot be negative")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

func (uc *UpstreamConfig) Validate() error {
	if uc.BaseURL == "" {
		return errors.New("base URL cannot be empty")
	}

	u, err := url.Parse(uc.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL must be http or https, got %q", u.Scheme)
	}

	if uc.APIKey == "" {
		return errors.New("upstream API key is required")
	}

	if uc.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}

	return nil
}

func (sec *SecurityConfig) Validate() error {
	if sec.APIKey == "" {
		return errors.New("gateway API key is required")
	}

	if sec.RateLimit.Enabled {
		if sec.RateLimit.Requests <= 0 {
			return errors.New("rate limit requests must be positive")
		}
		if sec.RateLimit.Window <= 0 {
			return errors.New("rate limit window must be positive")
		}
		switch sec.RateLimit.KeyStrategy {
		case KeyStrategyCredential, KeyStrategyGlobal, KeyStrategyClientIP:
		default:
			return fmt.Errorf("invalid rate limit key strategy: %s", sec.RateLimit.KeyStrategy)
		}
	}

	return nil
}

func (uc *UsageConfig) Validate() error {
	if !uc.Enabled {
		return nil
	}

	switch uc.Type {
	case UsageTypeMemory:
		if uc.MaxEvents <= 0 {
			return errors.New("max events must be positive for memory usage ledger")
		}
	case UsageTypeSQLite, UsageTypePostgres:
		if uc.DSN == "" {
			return fmt.Errorf("DSN is required for %s usage ledger", uc.Type)
		}
	case UsageTypeRedis:
		if uc.Redis.Addr == "" {
			return errors.New("Redis address is required for redis usage ledger")
		}
		if uc.Redis.TTL < 0 {
			return errors.New("Redis TTL cannot be negative")
		}
	default:
		return fmt.Errorf("invalid usage ledger type: %s", uc.Type)
	}

	return nil
}

func (lc *LoggingConfig) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	found := false
	for _, vl := range validLevels {
		if lc.Level == vl {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	validFormats := []string{"json", "text"}
	found = false
	for _, vf := range validFormats {
		if lc.Format == vf {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	validOutputs := []string{"stdout", "stderr", "file"}
	found = false
	for _, vo := range validOutputs {
		if lc.Output == vo {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if !oc.Tracing.Enabled {
		return nil
	}

	switch oc.Tracing.Exporter {
	case "stdout":
	case "otlp":
		if oc.Tracing.OTLPEndpoint == "" {
			return errors.New("OTLP endpoint is required when exporter is otlp")
		}
	default:
		return fmt.Errorf("invalid trace exporter: %s", oc.Tracing.Exporter)
	}

	if oc.Tracing.SampleRate < 0 || oc.Tracing.SampleRate > 1 {
		return errors.New("sample rate must be between 0 and 1")
	}

	return nil
}
