package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// bindJSON parses and validates the request body into dst. When it reports
// false the 400 response has already been written.
func bindJSON(c *fiber.Ctx, dst any) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
			"cause": err.Error(),
		})
	}
	if err := validate.Struct(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "validation failed",
			"cause": validationCause(err),
		})
	}
	return true, nil
}

func validationCause(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
