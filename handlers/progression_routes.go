package handlers

import (
	"strconv"

	"ecoecho-core/middleware"
	"ecoecho-core/models"
	"ecoecho-core/services"
	"ecoecho-core/store"

	"github.com/gofiber/fiber/v2"
)

type achievementView struct {
	models.AchievementDefinition
	Unlocked bool    `json:"unlocked"`
	Progress float64 `json:"progress"`
}

func SetupProgressionRoutes(router fiber.Router, scanService *services.ScanService, achievementService *services.AchievementService, progressionService *services.ProgressionService, stream *services.AchievementStreamService) {
	router.Get("/achievements", func(c *fiber.Ctx) error {
		ns := store.ForUser(middleware.SessionFrom(c).UserID)
		progress, err := achievementService.Progress(c.UserContext(), ns)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to read progress",
				"cause": err.Error(),
			})
		}

		grouped := make(map[models.AchievementCategory][]achievementView)
		unlockedCount := 0
		for category, defs := range achievementService.CatalogByCategory() {
			for _, def := range defs {
				view := achievementView{
					AchievementDefinition: def,
					Unlocked:              progress.IsUnlocked(def.ID),
					Progress:              achievementService.FractionOf(&progress, def),
				}
				if view.Unlocked {
					unlockedCount++
				}
				grouped[category] = append(grouped[category], view)
			}
		}

		return c.JSON(fiber.Map{
			"categories": grouped,
			"unlocked":   unlockedCount,
			"total":      len(achievementService.Catalog()),
		})
	})

	router.Get("/achievements/unlocked", func(c *fiber.Ctx) error {
		ns := store.ForUser(middleware.SessionFrom(c).UserID)
		unlocked, err := achievementService.Unlocked(c.UserContext(), ns)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to read achievements",
				"cause": err.Error(),
			})
		}
		if unlocked == nil {
			unlocked = []models.AchievementDefinition{}
		}
		return c.JSON(fiber.Map{"achievements": unlocked, "count": len(unlocked)})
	})

	router.Get("/achievements/:id/progress", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, ok := models.FindAchievement(id); !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": services.ErrUnknownAchievement.Error(),
				"cause": id,
			})
		}
		ns := store.ForUser(middleware.SessionFrom(c).UserID)
		return c.JSON(fiber.Map{
			"id":       id,
			"progress": achievementService.ProgressFraction(c.UserContext(), ns, id),
		})
	})

	router.Get("/achievements/stream", middleware.SSESessionMiddleware(), stream.StreamAchievementsSSE)

	router.Post("/shares", func(c *fiber.Ctx) error {
		unlocked, err := scanService.Share(c.UserContext(), middleware.SessionFrom(c))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record share",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"newAchievements": unlocked})
	})

	router.Get("/progress", func(c *fiber.Ctx) error {
		ns := store.ForUser(middleware.SessionFrom(c).UserID)
		return c.JSON(progressionService.GetProgress(c.UserContext(), ns))
	})

	router.Get("/progress/points", func(c *fiber.Ctx) error {
		ns := store.ForUser(middleware.SessionFrom(c).UserID)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		history, err := progressionService.GetPointsHistory(c.UserContext(), ns, page, size)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to read points",
				"cause": err.Error(),
			})
		}
		return c.JSON(history)
	})
}
