package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"ecoecho-core/middleware"
	"ecoecho-core/models"
	"ecoecho-core/services"
	"ecoecho-core/store"

	"github.com/gofiber/fiber/v2"
)

// maxImageBytes caps a single scan image upload.
const maxImageBytes = 10 * 1024 * 1024

type recordScanRequest struct {
	models.ScanInput
	ImageURI string `json:"imageUri" validate:"max=2048"`
}

// UnmarshalJSON keeps the embedded input's lenient decoding from hiding imageUri.
func (r *recordScanRequest) UnmarshalJSON(data []byte) error {
	if err := r.ScanInput.UnmarshalJSON(data); err != nil {
		return err
	}
	var extra struct {
		ImageURI json.RawMessage `json:"imageUri"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	r.ImageURI = ""
	_ = json.Unmarshal(extra.ImageURI, &r.ImageURI)
	return nil
}

func SetupScanRoutes(router fiber.Router, scanService *services.ScanService, historyService *services.HistoryService) {
	router.Post("/scans", func(c *fiber.Ctx) error {
		var req recordScanRequest
		if ok, err := bindJSON(c, &req); !ok {
			return err
		}

		out, err := scanService.Record(c.UserContext(), middleware.SessionFrom(c), req.ScanInput, req.ImageURI)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to save scan",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(out)
	})

	router.Post("/scans/image", func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "image file is required",
				"cause": err.Error(),
			})
		}
		if fileHeader.Size > maxImageBytes {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"error": "image too large",
			})
		}
		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to open image",
				"cause": err.Error(),
			})
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to read image",
				"cause": err.Error(),
			})
		}

		out, err := scanService.RecordImage(c.UserContext(), middleware.SessionFrom(c),
			fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
		switch {
		case errors.Is(err, services.ErrClassifierDisabled):
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "image classification is not available",
			})
		case services.IsNetworkError(err):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "classifier request failed",
				"cause": err.Error(),
			})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to save scan",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(out)
	})

	router.Get("/scans/history", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(services.DefaultHistoryLimit)))
		ns := store.ForUser(middleware.SessionFrom(c).UserID)

		scans, err := historyService.History(c.UserContext(), ns, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to read scan history",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"scans": scans, "count": len(scans)})
	})
}
