package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/teacher-dashboard-api/internal/utils"
)

// NonceHeader carries the request nonce; the "nonce" form field is accepted too.
const NonceHeader = "X-WP-Nonce"

// NonceVerifier checks a nonce issued to a user for an action.
type NonceVerifier interface {
	Verify(token string, userID uint64, action string) error
}

// RequireNonce rejects the request before any data access unless it carries a
// valid nonce for the session user.
func RequireNonce(verifier NonceVerifier, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		nonce := strings.TrimSpace(c.Get(NonceHeader))
		if nonce == "" {
			nonce = strings.TrimSpace(c.FormValue("nonce"))
		}
		if nonce == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "nonce missing")
		}

		if err := verifier.Verify(nonce, UserIDFromContext(c), action); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid nonce")
		}
		return c.Next()
	}
}
