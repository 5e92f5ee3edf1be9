package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/teacher-dashboard-api/internal/config"
	"github.com/noah-isme/teacher-dashboard-api/internal/handler"
	"github.com/noah-isme/teacher-dashboard-api/internal/middleware"
	"github.com/noah-isme/teacher-dashboard-api/internal/observability"
	"github.com/noah-isme/teacher-dashboard-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	DashboardHandler   *handler.DashboardHandler
	Database           handler.Pinger
	SessionMiddleware  fiber.Handler
	IdentityMiddleware fiber.Handler
	NonceMiddleware    fiber.Handler
	RefreshLimiter     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Database))
	app.Get("/metrics", observability.MetricsHandler())

	if deps.DashboardHandler == nil {
		return
	}

	// Session and identity are resolved on every dashboard request; roles come
	// from the host store, never from the token.
	guards := []fiber.Handler{
		orNext(deps.SessionMiddleware),
		orNext(deps.IdentityMiddleware),
		middleware.RequireRole(string(service.RoleAdmin), string(service.RoleTeacher)),
	}

	deps.DashboardHandler.RegisterPage(app, guards...)

	dashboard := app.Group("/api/v2/dashboard", guards...)
	deps.DashboardHandler.Register(dashboard, handler.DashboardGuards{
		Nonce:        deps.NonceMiddleware,
		RefreshLimit: deps.RefreshLimiter,
	})
}

func orNext(h fiber.Handler) fiber.Handler {
	if h != nil {
		return h
	}
	return func(c *fiber.Ctx) error { return c.Next() }
}
