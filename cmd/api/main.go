package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/teacher-dashboard-api/internal/config"
	"github.com/noah-isme/teacher-dashboard-api/internal/database"
	"github.com/noah-isme/teacher-dashboard-api/internal/events"
	"github.com/noah-isme/teacher-dashboard-api/internal/handler"
	"github.com/noah-isme/teacher-dashboard-api/internal/middleware"
	"github.com/noah-isme/teacher-dashboard-api/internal/observability"
	"github.com/noah-isme/teacher-dashboard-api/internal/repository"
	"github.com/noah-isme/teacher-dashboard-api/internal/router"
	"github.com/noah-isme/teacher-dashboard-api/internal/security"
	"github.com/noah-isme/teacher-dashboard-api/internal/service"
	"github.com/noah-isme/teacher-dashboard-api/internal/view"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}
	logger = logger.With().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(database.Options{
		Driver:   cfg.DatabaseDriver,
		DSN:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to access database pool")
	}
	defer sqlDB.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable: dashboard cache and redis access events disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = events.Connect(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable: access events will not be published there")
			natsConn = nil
		} else {
			defer func() {
				if err := natsConn.Drain(); err != nil {
					logger.Warn().Err(err).Msg("failed to drain nats connection")
				}
			}()
		}
	}

	observability.RegisterMetrics()

	validate := validator.New(validator.WithRequiredStructEnabled())
	resolver := service.NewRoleResolver(service.RoleConfig{
		AdminRoles:   cfg.AdminRoles,
		TeacherRoles: cfg.TeacherRoles,
		StudentRoles: cfg.StudentRoles,
	})

	reportingRepo := repository.NewReportingRepository(db, repository.NewTables(cfg.TablePrefix))
	reportingService := service.NewReportingService(reportingRepo, resolver, logger)
	dashboardService := service.NewDashboardService(reportingService, resolver, validate, redisClient, cfg.DashboardCacheTTL, logger)

	renderer, err := view.NewRenderer()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse templates")
	}
	nonces := security.NewNonceManager(cfg.NonceSecret, cfg.NonceTTL)

	hostname, _ := os.Hostname()
	accessEvents := events.NewBroadcaster(hostname, redisClient, cfg.EventsChannel, natsConn, cfg.NATSSubject, logger)

	dashboardHandler := handler.NewDashboardHandler(dashboardService, nonces, renderer, cfg.AppName, logger)
	if accessEvents.Enabled() {
		dashboardHandler.WithEvents(accessEvents)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, CORSOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		DashboardHandler:   dashboardHandler,
		Database:           sqlDB,
		SessionMiddleware:  middleware.SessionProtected(cfg.JWTSecret, cfg.SessionCookie),
		IdentityMiddleware: middleware.LoadIdentity(dashboardService, logger),
		NonceMiddleware:    middleware.RequireNonce(nonces, security.ActionDashboard),
		RefreshLimiter:     middleware.RateLimit("dashboard_refresh", cfg.RefreshRateLimit, cfg.RefreshRateWindow),
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Str("driver", cfg.DatabaseDriver).Msg("starting dashboard api")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
