package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Headers carrying the correlation identifier. The request id header is
// honoured so reverse proxies in front of WordPress can seed the value.
const (
	CorrelationHeader = "X-Correlation-ID"
	RequestIDHeader   = "X-Request-ID"

	LocalCorrelationID = "correlation_id"
)

type correlationKey struct{}

// CorrelationID tags every request with an identifier that is echoed back to
// the client and threaded through the user context.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(CorrelationHeader))
		if id == "" {
			id = strings.TrimSpace(c.Get(RequestIDHeader))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(LocalCorrelationID, id)
		c.Set(CorrelationHeader, id)
		c.SetUserContext(context.WithValue(c.UserContext(), correlationKey{}, id))

		return c.Next()
	}
}

// CorrelationIDFromContext extracts the correlation identifier from ctx.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// GetCorrelationID returns the correlation identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(LocalCorrelationID).(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// RequestLogger derives a logger carrying the request's correlation id and,
// once the session is resolved, the WordPress user id.
func RequestLogger(base zerolog.Logger, c *fiber.Ctx) zerolog.Logger {
	if c == nil {
		return base
	}
	ctx := base.With()
	if id := GetCorrelationID(c); id != "" {
		ctx = ctx.Str(LocalCorrelationID, id)
	}
	if userID := UserIDFromContext(c); userID != 0 {
		ctx = ctx.Uint64("user_id", userID)
	}
	return ctx.Logger()
}
