package middleware

import (
	"crypto/subtle"
	"log"

	"github.com/gofiber/fiber/v2"
)

// DeviceTokenMiddleware only lets through callers presenting the device API
// token in X-Device-Token. An empty expected token disables the check.
func DeviceTokenMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		log.Println("⚠️  DEVICE_API_TOKEN not set, local API is open to any caller")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		token := c.Get("X-Device-Token")
		if token == "" {
			token = c.Query("device_token")
		}
		if token == "" {
			log.Printf("🚫 [DEVICE_AUTH] Missing device token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "device token missing",
			})
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
			log.Printf("❌ [DEVICE_AUTH] Invalid device token for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid device token",
			})
		}
		return c.Next()
	}
}
