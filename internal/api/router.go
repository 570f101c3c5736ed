// Package api provides the HTTP API for SafeRoute.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/api/handler"
	"github.com/saferoute/saferoute/internal/api/middleware"
	"github.com/saferoute/saferoute/internal/auth"
	"github.com/saferoute/saferoute/internal/clock"
	"github.com/saferoute/saferoute/internal/navigation"
	"github.com/saferoute/saferoute/internal/provider/resilience"
	"github.com/saferoute/saferoute/internal/reports"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool
	Clock       clock.Clock

	AuthService *auth.Service
	Planner     handler.RoutePlanner
	Navigation  *navigation.Manager
	Reports     reports.Repository

	// AlertPublisher broadcasts emergency alerts (optional; alerts answer 503 without it).
	AlertPublisher     handler.AlertPublisher
	DefaultAlertRadius float64
	MaxAlertRadius     float64

	ProviderRegistry *resilience.Registry
	ReadinessChecks  []handler.ReadinessCheck
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "saferoute-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type
	r.Use(middleware.RequireJSON)                // JSON request bodies

	opsConfig := handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.ProviderRegistry,
		Checks:    cfg.ReadinessChecks,
		Clock:     cfg.Clock,

		AlertBroadcasting: cfg.AlertPublisher != nil,
	}
	if cfg.Navigation != nil {
		opsConfig.Navigators = cfg.Navigation
	}
	opsHandler := handler.NewOpsHandler(opsConfig)
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	routeHandler := handler.NewRouteHandler(cfg.Planner, cfg.Clock)
	navigationHandler := handler.NewNavigationHandler(cfg.Navigation, cfg.Planner, cfg.Clock)
	alertHandler := handler.NewAlertHandler(handler.AlertConfig{
		Publisher:           cfg.AlertPublisher,
		DefaultRadiusMeters: cfg.DefaultAlertRadius,
		MaxRadiusMeters:     cfg.MaxAlertRadius,
		Logger:              cfg.Logger,
		Clock:               cfg.Clock,
	})
	reportHandler := handler.NewReportHandler(cfg.Reports)

	authMiddleware := middleware.Auth(cfg.AuthService)

	r.Route("/v1", func(r chi.Router) {
		// Auth endpoints (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.AuthRateLimit))
			r.Post("/dev", authHandler.DevLogin)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Routes - expensive compute, strict rate limiting
		r.With(middleware.RateLimitByIP(middleware.ExpensiveRateLimit)).Post("/routes:compute", routeHandler.ComputeRoutes)
		r.With(middleware.RateLimitByIP(middleware.StandardRateLimit)).Get("/routes/{routeId}", routeHandler.GetRoute)

		// Navigation (authenticated) - one session per user
		r.Route("/navigation", func(r chi.Router) {
			r.Use(authMiddleware)
			r.With(middleware.RateLimitByUser(middleware.StandardRateLimit)).Post("/session", navigationHandler.StartSession)
			r.With(middleware.RateLimitByUser(middleware.StandardRateLimit)).Get("/session", navigationHandler.GetSession)
			r.With(middleware.RateLimitByUser(middleware.StandardRateLimit)).Delete("/session", navigationHandler.StopSession)
			r.With(middleware.RateLimitByUser(middleware.PositionRateLimit)).Post("/session/positions", navigationHandler.UpdatePosition)
			r.With(middleware.RateLimitByUser(middleware.ExpensiveRateLimit)).Post("/session:recalculate", navigationHandler.Recalculate)
		})

		// Emergency alerts (authenticated)
		r.With(authMiddleware, middleware.RateLimitByUser(middleware.AlertRateLimit)).Post("/alerts", alertHandler.CreateAlert)

		// Community reports (authenticated)
		r.With(authMiddleware, middleware.RateLimitByUser(middleware.StandardRateLimit)).Post("/reports", reportHandler.CreateReport)
	})

	return r
}
