package security

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// APIKeyGuard requires X-API-Key to match apiKey. An empty apiKey leaves the
// group open.
func APIKeyGuard(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if apiKey != "" && !equal(c.Get("X-API-Key"), apiKey) {
			return c.Status(401).JSON(fiber.Map{"error": "unauthorized"})
		}
		return c.Next()
	}
}

// AdminGuard requires X-Admin-Token to match token. An empty token locks the
// group.
func AdminGuard(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" || !equal(c.Get("X-Admin-Token"), token) {
			return c.Status(403).JSON(fiber.Map{"error": "forbidden"})
		}
		return c.Next()
	}
}

func equal(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
