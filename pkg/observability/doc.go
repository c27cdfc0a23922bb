// Package observability provides logging, metrics, tracing and health checks.
//
// # Overview
//
// This package holds the operational surface of the gateway: a structured
// JSON logger built on stdlib slog, Prometheus metrics for HTTP traffic and
// the authentication/authorization flows, optional OpenTelemetry tracing
// over OTLP gRPC, and liveness/readiness probes that ping both backing
// stores.
//
// # Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("subdomain", "billing").Info("gate decision")
//
// Request handlers pull a request-scoped logger from the context:
//
//	logger := observability.FromContext(r.Context())
//
// # Metrics
//
// Metrics are registered on a private Prometheus registry and exposed on
// the health port:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	mux.Handle("/metrics", observability.MetricsHandler(registry))
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	mux.HandleFunc("/health", checker.Liveness)
//	mux.HandleFunc("/ready", checker.Readiness)
//
// Readiness fails when either Redis or Postgres is unreachable; the
// gateway cannot make a correct decision with only one of them.
package observability
