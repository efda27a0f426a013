package middleware

import (
	"log"
	"strings"

	"ecoecho-core/models"

	"github.com/gofiber/fiber/v2"
)

// SessionMiddleware builds the session from X-User-ID and the bearer token.
// Requests without a user id act for the anonymous namespace.
func SessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := models.Session{
			UserID: strings.TrimSpace(c.Get("X-User-ID")),
			Token:  bearerToken(c.Get("Authorization")),
		}
		c.Locals(models.SessionLocalsKey, session)

		if session.IsAuthenticated() && session.Token == "" {
			log.Printf("⚠️ [SESSION] %s has no bearer token, server sync disabled | Path: %s", session.UserID, c.Path())
		}
		return c.Next()
	}
}

// SessionFrom returns the session attached by SessionMiddleware.
func SessionFrom(c *fiber.Ctx) models.Session {
	session, _ := c.Locals(models.SessionLocalsKey).(models.Session)
	return session
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
