package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/influencer-scout/backend/internal/auth"
	"github.com/influencer-scout/backend/pkg/logger"
)

type AuthHandler struct {
	manager       *auth.Manager
	adminPassword string
	secureCookies bool
}

func NewAuthHandler(manager *auth.Manager, adminPassword string, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		manager:       manager,
		adminPassword: adminPassword,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Password is required",
		})
	}

	if !h.manager.VerifyPassword(req.Password, h.adminPassword) {
		logger.Warn("Failed login attempt", zap.String("ip", c.IP()))
		// Slow down brute forcing.
		time.Sleep(time.Second)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid password",
		})
	}

	token, err := h.manager.Issue()
	if err != nil {
		logger.Error("Failed to issue session token", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Login failed",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
		MaxAge:   int(h.manager.TTL().Seconds()),
		Path:     "/",
	})

	return c.JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	// Tokens are stateless; clearing the cookie is the whole logout.
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
		MaxAge:   -1,
		Path:     "/",
	})

	return c.JSON(fiber.Map{"success": true})
}
