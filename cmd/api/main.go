// Package main provides the entrypoint for the SafeRoute API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api"
	"github.com/saferoute/saferoute/internal/api/handler"
	"github.com/saferoute/saferoute/internal/api/middleware"
	"github.com/saferoute/saferoute/internal/auth"
	"github.com/saferoute/saferoute/internal/config"
	"github.com/saferoute/saferoute/internal/database"
	"github.com/saferoute/saferoute/internal/navigation"
	"github.com/saferoute/saferoute/internal/planner"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/reports"
	"github.com/saferoute/saferoute/internal/stream/pubsub"
	"github.com/saferoute/saferoute/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const devSigningKey = "local-dev-signing-key-change-in-production"

func main() {
	const serviceName = "saferoute-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting SafeRoute API")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Float64("sample_ratio", cfg.Telemetry.SampleRatio).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics(tp.Meter)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := middleware.NewProviderMetrics(tp.Meter)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}

	// Reports persist in Postgres when a database is configured.
	var readiness []handler.ReadinessCheck
	var reportRepo reports.Repository = reports.NewInMemoryRepository()
	dbConfig, err := database.ConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid database configuration")
	}
	if dbConfig.Enabled() {
		pool := connectDatabase(ctx, log, dbConfig)
		defer pool.Close()
		reportRepo = reports.NewPostgresRepository(pool)
		readiness = append(readiness, handler.ReadinessCheck{Name: "database", Check: pool.Ping})
	} else {
		log.Warn().Msg("no database configured - community reports are kept in memory")
	}

	registry := resilience.NewRegistry(resilience.WithLogger(log.With().Str("component", "providers").Logger()))
	p := newPlanner(cfg, plannerDeps{
		Logger:   log,
		Registry: registry,
		Metrics:  providerMetrics,
		Reports:  reportRepo,
	})

	signingKey := cfg.Auth.SigningKey
	if signingKey == "" {
		signingKey = devSigningKey
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey:          signingKey,
			PreviousSigningKeys: cfg.Auth.PreviousSigningKeys,
			Issuer:              cfg.Auth.Issuer,
			Audience:            cfg.Auth.Audience,
			Expiry:              cfg.Auth.TokenExpiry,
		}),
		DevMode: cfg.Auth.DevMode,
	})
	if cfg.Auth.DevMode {
		log.Warn().Msg("dev token endpoint enabled")
	}

	navigators := navigation.NewManager(navigation.NavigatorConfig{
		Thresholds: navigation.Thresholds{
			StepAdvanceMeters: cfg.Navigation.StepAdvanceMeters,
			ArrivalMeters:     cfg.Navigation.ArrivalMeters,
			DeviationMeters:   cfg.Navigation.DeviationMeters,
		},
		Logger:  log.With().Str("component", "navigation").Logger(),
		Planner: p,
		Options: planner.Options{Alternatives: true},
	}, cfg.Navigation.MaxNavigators)

	if err := telemetry.RegisterGauge(tp.Meter, "saferoute.navigation.navigators",
		"Devices with a live navigator", func() int64 { return int64(navigators.Len()) }); err != nil {
		log.Warn().Err(err).Msg("failed to register navigator gauge")
	}

	// Alerts are broadcast through Pub/Sub; without a project the endpoint answers 503.
	var alertPublisher handler.AlertPublisher
	if cfg.Streams.PubSubProjectID != "" {
		publisher, pubErr := pubsub.NewAlertPublisher(ctx, pubsub.PublisherConfig{
			ProjectID: cfg.Streams.PubSubProjectID,
			TopicName: cfg.Streams.AlertTopic,
			Logger:    log,
		})
		if pubErr != nil {
			log.Fatal().Err(pubErr).Msg("failed to create alert publisher")
		}
		defer publisher.Close()
		alertPublisher = publisher
		log.Info().Str("topic", cfg.Streams.AlertTopic).Msg("alert publisher initialized")
	} else {
		log.Warn().Msg("PUBSUB_PROJECT_ID not set - emergency alerts are disabled")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		RequireTLS:         cfg.Server.RequireTLS,
		AuthService:        authService,
		Planner:            p,
		Navigation:         navigators,
		Reports:            reportRepo,
		AlertPublisher:     alertPublisher,
		DefaultAlertRadius: cfg.Alerts.DefaultRadiusMeters,
		MaxAlertRadius:     cfg.Alerts.MaxRadiusMeters,
		ProviderRegistry:   registry,
		ReadinessChecks:    readiness,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

func connectDatabase(ctx context.Context, log zerolog.Logger, dbConfig database.Config) *pgxpool.Pool {
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		log.Fatal().Err(err).Msg("failed to apply database schema")
	}
	log.Info().Str("dsn", dbConfig.Redacted()).Msg("database connected")
	return pool
}
