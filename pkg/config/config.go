package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/authgate/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Session store (Redis) configuration
	Session SessionConfig

	// Relational store (Postgres) configuration
	Storage StorageConfig

	// Authentication configuration
	Auth AuthConfig

	// Observability configuration
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
}

// SessionConfig holds session store and cookie configuration
type SessionConfig struct {
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// TTL is the fixed session lifetime. Sessions are not renewed on
	// activity; the Redis-side expiry is the only sweeper.
	TTL time.Duration

	// CookieName is the session cookie name presented to browsers and
	// to the nginx auth subrequest.
	CookieName string

	// RootDomain scopes the session cookie ("." + RootDomain) so that
	// every gated subdomain sends it.
	RootDomain string
}

// StorageConfig holds relational store configuration
type StorageConfig struct {
	PostgresURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AuthConfig holds credential and second-factor configuration
type AuthConfig struct {
	// BcryptCost is the bcrypt work factor for password hashes.
	BcryptCost int

	// Issuer is the TOTP provisioning issuer shown in authenticator apps.
	Issuer string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled     bool
	OTelEndpoint    string
	OTelServiceName string
	OTelInsecure    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("AUTHGATE_HOST", "0.0.0.0"),
			Port:            getEnv("AUTHGATE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("AUTHGATE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("AUTHGATE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("AUTHGATE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("AUTHGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("AUTHGATE_HEALTH_PORT", "9090"),
		},
		Session: SessionConfig{
			RedisURL:        getEnv("AUTHGATE_REDIS_URL", "redis://localhost:6379"),
			RedisPassword:   getEnv("AUTHGATE_REDIS_PASSWORD", ""),
			RedisDB:         getEnvInt("AUTHGATE_REDIS_DB", 0),
			RedisMaxRetries: getEnvInt("AUTHGATE_REDIS_MAX_RETRIES", 3),
			RedisPoolSize:   getEnvInt("AUTHGATE_REDIS_POOL_SIZE", 10),
			TTL:             getEnvDuration("AUTHGATE_SESSION_TTL", 24*time.Hour),
			CookieName:      getEnv("AUTHGATE_COOKIE_NAME", "authgate_session"),
			RootDomain:      getEnv("AUTHGATE_ROOT_DOMAIN", ""),
		},
		Storage: StorageConfig{
			PostgresURL:     getEnv("AUTHGATE_POSTGRES_URL", ""),
			MaxOpenConns:    getEnvInt("AUTHGATE_POSTGRES_MAX_CONNS", 20),
			MaxIdleConns:    getEnvInt("AUTHGATE_POSTGRES_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("AUTHGATE_POSTGRES_CONN_LIFETIME", 30*time.Minute),
		},
		Auth: AuthConfig{
			BcryptCost: getEnvInt("AUTHGATE_BCRYPT_COST", 10),
			Issuer:     getEnv("AUTHGATE_ISSUER", "authgate"),
		},
		Observability: ObservabilityConfig{
			LogLevel:        parseLogLevel(getEnv("AUTHGATE_LOG_LEVEL", "info")),
			MetricsEnabled:  getEnvBool("AUTHGATE_METRICS_ENABLED", true),
			OTelEnabled:     getEnvBool("AUTHGATE_OTEL_ENABLED", false),
			OTelEndpoint:    getEnv("AUTHGATE_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName: getEnv("AUTHGATE_OTEL_SERVICE_NAME", "authgate"),
			OTelInsecure:    getEnvBool("AUTHGATE_OTEL_INSECURE", true),
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

	if c.Session.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}
	if c.Session.RootDomain == "" {
		return fmt.Errorf("root domain is required")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
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
// Bare integers are interpreted as seconds to match the proxy-side
// convention for session lengths.
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
