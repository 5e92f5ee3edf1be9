package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
	"github.com/noah-isme/teacher-dashboard-api/internal/service"
	"github.com/noah-isme/teacher-dashboard-api/internal/utils"
)

// Locals populated by LoadIdentity.
const (
	LocalIdentity = "dashboard_identity"
	LocalRole     = "dashboard_role"
)

// IdentityLoader resolves the host identity and dashboard role of a user.
type IdentityLoader interface {
	LoadIdentity(ctx context.Context, userID uint64) (models.Identity, service.Role, error)
}

// LoadIdentity reads the session user's roles from the host store on every request.
func LoadIdentity(loader IdentityLoader, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := UserIDFromContext(c)
		if userID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		identity, role, err := loader.LoadIdentity(c.UserContext(), userID)
		if err != nil {
			if errors.Is(err, service.ErrIdentityNotFound) {
				return utils.SendError(c, fiber.StatusUnauthorized, "unknown user")
			}
			reqLogger := RequestLogger(logger, c)
			reqLogger.Error().Err(err).Msg("failed to load identity")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to load identity")
		}

		c.Locals(LocalIdentity, identity)
		c.Locals(LocalRole, string(role))
		return c.Next()
	}
}

// IdentityFromContext returns the identity bound by LoadIdentity.
func IdentityFromContext(c *fiber.Ctx) (models.Identity, bool) {
	identity, ok := c.Locals(LocalIdentity).(models.Identity)
	return identity, ok
}
