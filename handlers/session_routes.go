package handlers

import (
	"ecoecho-core/middleware"
	"ecoecho-core/services"

	"github.com/gofiber/fiber/v2"
)

type loginRequest struct {
	UserID string `json:"userId" validate:"omitempty,max=128"`
}

func SetupSessionRoutes(router fiber.Router, migration *services.MigrationService) {
	// Called by the app right after the user authenticates.
	router.Post("/session/login", func(c *fiber.Ctx) error {
		var req loginRequest
		if len(c.Body()) > 0 {
			if ok, err := bindJSON(c, &req); !ok {
				return err
			}
		}
		userID := middleware.SessionFrom(c).UserID
		if userID == "" {
			userID = req.UserID
		}
		if userID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user id required (X-User-ID header or userId)",
			})
		}

		if err := migration.MigrateOnLogin(c.UserContext(), userID); err != nil {
			// Anonymous data is gone either way; report what could not be merged.
			return c.JSON(fiber.Map{
				"userId":   userID,
				"migrated": false,
				"cause":    err.Error(),
			})
		}
		return c.JSON(fiber.Map{"userId": userID, "migrated": true})
	})

	// Drops the user's on-device data and cached server state.
	router.Post("/session/logout", func(c *fiber.Ctx) error {
		userID := middleware.SessionFrom(c).UserID
		if userID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "user id required (X-User-ID header)",
			})
		}
		if err := migration.ClearUser(c.UserContext(), userID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to clear user data",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"userId": userID, "cleared": true})
	})
}
