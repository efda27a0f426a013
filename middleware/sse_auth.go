package middleware

import (
	"log"
	"strings"

	"ecoecho-core/models"

	"github.com/gofiber/fiber/v2"
)

// SSESessionMiddleware builds the session from the user_id and token query
// params, for EventSource clients that cannot set headers. Headers set by
// SessionMiddleware win when present.
//
// Usage:
//
//	app.Get("/achievements/stream", middleware.SSESessionMiddleware(), stream.StreamAchievementsSSE)
func SSESessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := SessionFrom(c)
		if session.UserID == "" {
			session.UserID = strings.TrimSpace(c.Query("user_id"))
		}
		if session.Token == "" {
			session.Token = strings.TrimSpace(c.Query("token"))
		}
		c.Locals(models.SessionLocalsKey, session)

		owner := session.UserID
		if owner == "" {
			owner = "anonymous"
		}
		log.Printf("[SSE] stream opened for %s from %s", owner, c.IP())
		return c.Next()
	}
}
