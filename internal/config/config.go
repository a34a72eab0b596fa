package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"weatherproxy/internal/models"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WEATHERPROXY_"

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order, and validates the result.
func Load(configPath string) (*models.Config, error) {
	config := models.NewDefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadFromFile(config *models.Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment applies WEATHERPROXY_* overrides, then the bare
// variables older deployments were configured with. Malformed numbers and
// durations are logged and ignored.
func loadFromEnvironment(config *models.Config) {
	// Deployment variables. The prefixed forms below win when both are set.
	setString("WEATHER_API_KEY", &config.Upstream.APIKey)
	setString("PROXY_API_KEY", &config.Security.APIKey)
	setInt("PORT", &config.Server.Port)

	// Server
	setInt(EnvPrefix+"PORT", &config.Server.Port)
	setString(EnvPrefix+"HOST", &config.Server.Host)
	setDuration(EnvPrefix+"READ_TIMEOUT", &config.Server.ReadTimeout)
	setDuration(EnvPrefix+"WRITE_TIMEOUT", &config.Server.WriteTimeout)
	setDuration(EnvPrefix+"IDLE_TIMEOUT", &config.Server.IdleTimeout)
	setBool(EnvPrefix+"TLS_ENABLED", &config.Server.TLSEnabled)
	setString(EnvPrefix+"TLS_CERT_FILE", &config.Server.TLSCertFile)
	setString(EnvPrefix+"TLS_KEY_FILE", &config.Server.TLSKeyFile)
	setBool(EnvPrefix+"CORS_ENABLED", &config.Server.CORS.Enabled)
	setList(EnvPrefix+"CORS_ALLOWED_ORIGINS", &config.Server.CORS.AllowedOrigins)

	// Upstream
	setString(EnvPrefix+"UPSTREAM_BASE_URL", &config.Upstream.BaseURL)
	setString(EnvPrefix+"UPSTREAM_API_KEY", &config.Upstream.APIKey)
	setDuration(EnvPrefix+"UPSTREAM_TIMEOUT", &config.Upstream.Timeout)
	setString(EnvPrefix+"UPSTREAM_USER_AGENT", &config.Upstream.UserAgent)

	// Security
	setString(EnvPrefix+"API_KEY", &config.Security.APIKey)
	setBool(EnvPrefix+"RATE_LIMIT_ENABLED", &config.Security.RateLimit.Enabled)
	setInt(EnvPrefix+"RATE_LIMIT_REQUESTS", &config.Security.RateLimit.Requests)
	setDuration(EnvPrefix+"RATE_LIMIT_WINDOW", &config.Security.RateLimit.Window)
	setString(EnvPrefix+"RATE_LIMIT_KEY_STRATEGY", &config.Security.RateLimit.KeyStrategy)

	// Usage ledger
	setBool(EnvPrefix+"USAGE_ENABLED", &config.Usage.Enabled)
	setString(EnvPrefix+"USAGE_TYPE", &config.Usage.Type)
	setString(EnvPrefix+"USAGE_DSN", &config.Usage.DSN)
	setInt(EnvPrefix+"USAGE_MAX_EVENTS", &config.Usage.MaxEvents)
	setString(EnvPrefix+"REDIS_ADDR", &config.Usage.Redis.Addr)
	setString(EnvPrefix+"REDIS_PASSWORD", &config.Usage.Redis.Password)
	setInt(EnvPrefix+"REDIS_DB", &config.Usage.Redis.DB)
	setString(EnvPrefix+"REDIS_PREFIX", &config.Usage.Redis.Prefix)
	setDuration(EnvPrefix+"REDIS_TTL", &config.Usage.Redis.TTL)

	// Logging
	setString(EnvPrefix+"LOG_LEVEL", &config.Logging.Level)
	setString(EnvPrefix+"LOG_FORMAT", &config.Logging.Format)
	setString(EnvPrefix+"LOG_OUTPUT", &config.Logging.Output)
	setString(EnvPrefix+"LOG_FILE_PATH", &config.Logging.FilePath)

	// Metrics
	setBool(EnvPrefix+"METRICS_ENABLED", &config.Metrics.Enabled)
	setString(EnvPrefix+"METRICS_PATH", &config.Metrics.Path)
	setInt(EnvPrefix+"METRICS_PORT", &config.Metrics.Port)

	// Tracing
	setString(EnvPrefix+"SERVICE_NAME", &config.Observability.ServiceName)
	setBool(EnvPrefix+"TRACING_ENABLED", &config.Observability.Tracing.Enabled)
	setString(EnvPrefix+"TRACING_EXPORTER", &config.Observability.Tracing.Exporter)
	setString(EnvPrefix+"OTLP_ENDPOINT", &config.Observability.Tracing.OTLPEndpoint)
	setFloat(EnvPrefix+"TRACING_SAMPLE_RATE", &config.Observability.Tracing.SampleRate)
}

func setString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func setBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func setInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		ignored(name, err)
		return
	}
	*dst = n
}

func setFloat(name string, dst *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		ignored(name, err)
		return
	}
	*dst = f
}

func setDuration(name string, dst *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		ignored(name, err)
		return
	}
	*dst = d
}

// setList splits a comma separated value, dropping empty items.
func setList(name string, dst *[]string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

func ignored(name string, err error) {
	slog.Warn("Ignoring malformed environment override", "variable", name, "error", err)
}

// SaveExample writes an example configuration with placeholder
// secrets to filePath.
func SaveExample(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()
	config.Upstream.APIKey = "your-weatherapi-key"
	config.Upstream.Timeout = 10 * time.Second
	config.Security.APIKey = models.APIKeyPrefix + "your-gateway-key"
	config.Server.TLSCertFile = "/path/to/cert.pem"
	config.Server.TLSKeyFile = "/path/to/key.pem"
	config.Usage.Options["journal_mode"] = "WAL"

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// The file carries secrets once filled in.
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
