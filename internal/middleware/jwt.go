package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/teacher-dashboard-api/internal/utils"
)

// LocalUserID holds the authenticated host user id as uint64.
const LocalUserID = "user_id"

// SessionProtected validates the HS256 session token carried either as a bearer
// token or in the named cookie, and exposes its subject as the user id.
func SessionProtected(secret, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := sessionToken(c, cookieName)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		userID := extractUserIDFromClaims(claims)
		if userID == nil || *userID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token subject")
		}
		c.Locals(LocalUserID, *userID)

		return c.Next()
	}
}

func sessionToken(c *fiber.Ctx, cookieName string) (string, error) {
	authorization := c.Get("Authorization")
	if authorization == "" {
		if cookieName != "" {
			if cookie := strings.TrimSpace(c.Cookies(cookieName)); cookie != "" {
				return cookie, nil
			}
		}
		return "", fmt.Errorf("authorization header missing")
	}

	const bearer = "Bearer "
	if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
		return "", fmt.Errorf("invalid authorization header")
	}

	tokenString := strings.TrimSpace(authorization[len(bearer):])
	if tokenString == "" {
		return "", fmt.Errorf("invalid token")
	}
	return tokenString, nil
}

func extractUserIDFromClaims(claims jwt.MapClaims) *uint64 {
	keys := []string{"sub", "user_id", "id"}
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeUserID(value); err == nil {
				return &normalized
			}
		}
	}

	return nil
}

func normalizeUserID(value interface{}) (uint64, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint64(v), nil
	case string:
		return strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

// UserIDFromContext returns the authenticated user id, or zero.
func UserIDFromContext(c *fiber.Ctx) uint64 {
	if id, ok := c.Locals(LocalUserID).(uint64); ok {
		return id
	}
	return 0
}
