package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"finance-backend/internal/engine"
)

// Middleware authenticates the bearer token and stores the caller as an
// *engine.UserContext under the "user" local.
func Middleware(v *Verifier, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
		switch {
		case scheme == "":
			return engine.UnauthorizedError("Missing auth token")
		case !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "":
			return engine.UnauthorizedError("Invalid auth header format")
		}

		claims, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			log.WithError(err).WithField("path", c.Path()).Debug("token rejected")
			return engine.UnauthorizedError("Invalid or expired token")
		}

		c.Locals("user", &engine.UserContext{
			ID:    claims.Subject,
			Roles: claims.Roles,
		})
		return c.Next()
	}
}
