package handlers

import (
	"encoding/json"
	"log"

	"ecoecho-core/middleware"
	"ecoecho-core/services"
	"ecoecho-core/store"

	"github.com/gofiber/fiber/v2"
)

func SetupStatsRoutes(router fiber.Router, historyService *services.HistoryService, reconciler *services.ReconcilerService, repo *store.Repository) {
	router.Get("/stats/local", func(c *fiber.Ctx) error {
		ns := store.ForUser(middleware.SessionFrom(c).UserID)
		return c.JSON(historyService.LocalStats(c.UserContext(), ns))
	})

	router.Get("/stats", func(c *fiber.Ctx) error {
		session := middleware.SessionFrom(c)
		stats, err := reconciler.Refresh(c.UserContext(), session)
		if err != nil {
			// Merged values are still good; only the profile copy failed.
			log.Printf("[RECONCILE] refresh for %s finished with: %v", session.UserID, err)
		}
		return c.JSON(stats)
	})

	router.Get("/debug/storage", func(c *fiber.Ctx) error {
		ns := store.ForUser(middleware.SessionFrom(c).UserID)
		all, err := repo.Raw(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to read storage",
				"cause": err.Error(),
			})
		}
		docs := make(map[string]json.RawMessage)
		for k, v := range all {
			if ns.Owns(k) {
				docs[k] = v
			}
		}
		return c.JSON(fiber.Map{
			"namespace": ns.String(),
			"documents": docs,
		})
	})
}
