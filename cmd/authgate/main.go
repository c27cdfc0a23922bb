package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/authgate/pkg/api"
	"github.com/platinummonkey/authgate/pkg/auth"
	"github.com/platinummonkey/authgate/pkg/config"
	"github.com/platinummonkey/authgate/pkg/gate"
	"github.com/platinummonkey/authgate/pkg/httputil"
	"github.com/platinummonkey/authgate/pkg/observability"
	"github.com/platinummonkey/authgate/pkg/session"
	"github.com/platinummonkey/authgate/pkg/storage/postgres"
	"github.com/platinummonkey/authgate/pkg/totp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting authgate")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing is optional; the service runs untraced when disabled
	if cfg.Observability.OTelEnabled {
		tp, err := observability.InitTracing(ctx, observability.OTelConfig{
			Enabled:     true,
			Endpoint:    cfg.Observability.OTelEndpoint,
			ServiceName: cfg.Observability.OTelServiceName,
			Insecure:    cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			logger.WithError(err).Error("failed to initialize tracing")
			os.Exit(1)
		}
		defer observability.ShutdownTracing(context.Background(), tp, logger)
	}

	// Relational store
	db, err := postgres.New(postgres.Config{
		URL:             cfg.Storage.PostgresURL,
		MaxOpenConns:    cfg.Storage.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.MaxIdleConns,
		ConnMaxLifetime: cfg.Storage.ConnMaxLifetime,
	})
	if err != nil {
		logger.WithError(err).Error("failed to connect to postgres")
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Error("failed to ensure schema")
		os.Exit(1)
	}

	// Session store
	sessionStore, err := session.NewRedisStore(cfg.Session)
	if err != nil {
		logger.WithError(err).Error("failed to connect to redis")
		os.Exit(1)
	}
	defer sessionStore.Close()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	sessions := session.NewManager(sessionStore, cfg.Session.TTL, logger, metrics)
	totpMgr := totp.NewManager(db, cfg.Auth.Issuer, metrics)
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	flow := auth.NewFlow(db, sessions, totpMgr, hasher, logger, metrics)
	engine := gate.NewEngine(db, sessions, logger, metrics)

	server := api.NewServer(api.Deps{
		Store:      db,
		Sessions:   sessions,
		TOTP:       totpMgr,
		Flow:       flow,
		Gate:       engine,
		Logger:     logger,
		Metrics:    metrics,
		CookieName: cfg.Session.CookieName,
		RootDomain: cfg.Session.RootDomain,
		SessionTTL: cfg.Session.TTL,
	})

	var handler http.Handler = httputil.Chain(
		httputil.RecoveryMiddleware(logger),
		httputil.RequestIDMiddleware(logger),
		httputil.LoggingMiddleware(logger),
	)(server)
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "authgate")
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port so the probes and the
	// scraper never contend with gate traffic.
	healthChecker := observability.NewHealthChecker(db.DB(), sessionStore.Client())
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", healthChecker.Liveness)
	healthMux.HandleFunc("/ready", healthChecker.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.MetricsHandler(registry))
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("api server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("health server shutdown failed")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server error")
		os.Exit(1)
	}
	logger.Info("stopped")
}
