// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	AUTHGATE_HOST="0.0.0.0"
//	AUTHGATE_PORT="8080"
//	AUTHGATE_HEALTH_PORT="9090"
//	AUTHGATE_READ_TIMEOUT="15s"
//	AUTHGATE_WRITE_TIMEOUT="15s"
//
// Session settings:
//
//	AUTHGATE_REDIS_URL="redis://localhost:6379"
//	AUTHGATE_SESSION_TTL="24h"   # bare integers are seconds
//	AUTHGATE_COOKIE_NAME="authgate_session"
//	AUTHGATE_ROOT_DOMAIN="example.com"
//
// Storage settings:
//
//	AUTHGATE_POSTGRES_URL="postgres://localhost/authgate"
//	AUTHGATE_POSTGRES_MAX_CONNS="20"
//
// Authentication settings:
//
//	AUTHGATE_BCRYPT_COST="10"
//	AUTHGATE_ISSUER="authgate"   # TOTP provisioning issuer
//
// Observability settings:
//
//	AUTHGATE_LOG_LEVEL="info"  # debug, info, warn, error
//	AUTHGATE_METRICS_ENABLED="true"
//	AUTHGATE_OTEL_ENABLED="false"
//	AUTHGATE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Session TTL: %s\n", cfg.Session.TTL)
//
// # Related Packages
//
//   - pkg/session: Uses session configuration
//   - pkg/observability: Uses observability configuration
package config
