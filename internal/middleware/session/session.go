package session

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/auth"
	"github.com/influencer-scout/backend/pkg/logger"
)

// Middleware validates the signed session cookie on every request to a
// protected route.
func Middleware(manager *auth.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(auth.CookieName)
		if token == "" || !manager.Validate(token) {
			logger.Debug("Unauthenticated request",
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authentication required",
			})
		}
		return c.Next()
	}
}
