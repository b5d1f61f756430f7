package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/benjamin/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Storage       StorageConfig
	Bus           BusConfig
	Directory     DirectoryConfig
	Auth          AuthConfig
	Invitations   InvitationConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// PublicBaseURL is used to build invitation join links
	PublicBaseURL string
}

// StorageConfig holds PostgreSQL and Redis configuration
type StorageConfig struct {
	PostgresURL     string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	// RedisURL enables the role cache when non-empty
	RedisURL      string
	RoleCacheTTL  time.Duration
}

// BusConfig holds message bus configuration
type BusConfig struct {
	Brokers []string
	Topic   string
}

// DirectoryConfig holds the external user directory configuration
type DirectoryConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuthConfig holds token verification configuration
type AuthConfig struct {
	JWTSecret string
}

// InvitationConfig holds invitation workflow configuration
type InvitationConfig struct {
	// TTL is how long an invitation token stays valid after creation
	TTL time.Duration
	// OutboxInterval is the delay between outbox dispatch ticks
	OutboxInterval time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("BENJAMIN_HOST", "0.0.0.0"),
			Port:            getEnv("BENJAMIN_PORT", "8080"),
			ReadTimeout:     getEnvDuration("BENJAMIN_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("BENJAMIN_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("BENJAMIN_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("BENJAMIN_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("BENJAMIN_HEALTH_PORT", "9090"),
			PublicBaseURL:   getEnv("BENJAMIN_PUBLIC_BASE_URL", "http://localhost:8080"),
		},
		Storage: StorageConfig{
			PostgresURL:      getEnv("BENJAMIN_POSTGRES_URL", "postgres://localhost/benjamin?sslmode=disable"),
			PostgresMaxConns: getEnvInt("BENJAMIN_POSTGRES_MAX_CONNS", 25),
			PostgresMinConns: getEnvInt("BENJAMIN_POSTGRES_MIN_CONNS", 5),
			PostgresTimeout:  getEnvDuration("BENJAMIN_POSTGRES_TIMEOUT", 10*time.Second),
			RedisURL:         getEnv("BENJAMIN_REDIS_URL", ""),
			RoleCacheTTL:     getEnvDuration("BENJAMIN_ROLE_CACHE_TTL", 30*time.Second),
		},
		Bus: BusConfig{
			Brokers: splitNonEmpty(getEnv("BENJAMIN_KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("BENJAMIN_KAFKA_TOPIC", "BENJAMIN.EMAIL"),
		},
		Directory: DirectoryConfig{
			BaseURL: getEnv("BENJAMIN_USER_DIRECTORY_URL", "http://localhost:8081"),
			Timeout: getEnvDuration("BENJAMIN_USER_DIRECTORY_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("BENJAMIN_JWT_SECRET", ""),
		},
		Invitations: InvitationConfig{
			TTL:            getEnvDuration("BENJAMIN_INVITATION_TTL", 2400*time.Second),
			OutboxInterval: getEnvDuration("BENJAMIN_OUTBOX_INTERVAL", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:       parseLogLevel(getEnv("BENJAMIN_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("BENJAMIN_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if len(c.Bus.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker is required")
	}
	if c.Bus.Topic == "" {
		return fmt.Errorf("kafka topic is required")
	}
	if c.Directory.BaseURL == "" {
		return fmt.Errorf("user directory URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Invitations.TTL <= 0 {
		return fmt.Errorf("invitation TTL must be positive")
	}
	if c.Invitations.OutboxInterval <= 0 {
		return fmt.Errorf("outbox interval must be positive")
	}
	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func splitNonEmpty(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default.
// Plain integers are interpreted as seconds for operability.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
