package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/config"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/admin"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/billing"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/diagnostics"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/identity"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/inbox"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/medication"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/domain/scheduling"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/apperr"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/audit"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/auth"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/logging"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/middleware"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/telemetry"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/validate"
)

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.New(cfg)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, poolOptions(cfg, "api"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	tel, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		OTLPInsecure:   cfg.OTLPInsecure,
		SamplingRate:   cfg.SamplingRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise telemetry")
	}

	a, err := newApp(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build services")
	}

	e := newServer(cfg, pool, a, logger)
	e.GET(metricsPath(cfg), tel.MetricsHandler())

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	a.Close()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("telemetry shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func metricsPath(cfg *config.Config) string {
	if cfg.MetricsPath == "" {
		return "/metrics"
	}
	return cfg.MetricsPath
}

// newServer builds the echo instance with the middleware chain and every
// route. The metrics endpoint is mounted by the caller.
func newServer(cfg *config.Config, pool *pgxpool.Pool, a *app, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.Handler(logger)
	e.Validator = validate.New(cfg.PhoneRegion)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(telemetry.Middleware())
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))

	// The tenant middleware reads the tenant claim, so authentication runs
	// first. The guard needs the tenant connection for its license lookup.
	e.Use(auth.Authenticate(a.issuer))
	e.Use(db.TenantMiddleware(pool, cfg.DefaultTenant, auth.InfraSkipper))
	e.Use(auth.Guard(auth.NewRouteTable(auth.DefaultRules), a.admin))
	e.Use(middleware.Audit(logger, audit.RequestRecorder{Store: a.audit}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": cfg.ServiceName,
			"version": cfg.Version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rl.RequestsPerSecond <= 0 {
		rl = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rl))

	identity.NewHandler(a.identity).RegisterRoutes(apiV1)
	admin.NewHandler(a.admin).RegisterRoutes(apiV1)
	scheduling.NewHandler(a.scheduling).RegisterRoutes(apiV1)
	billing.NewHandler(a.billing).RegisterRoutes(apiV1)
	medication.NewHandler(a.medication).RegisterRoutes(apiV1)
	diagnostics.NewHandler(a.diagnostics).RegisterRoutes(apiV1)
	inbox.NewHandler(a.inbox).RegisterRoutes(apiV1)
	audit.NewHandler(a.audit).RegisterRoutes(apiV1.Group("/admin"))

	return e
}
