package middleware

import (
	"lms/apperr"
	"lms/logger"

	"github.com/gofiber/fiber/v2"
)

func JsonResponse(c *fiber.Ctx, statusCode int, success bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"success": success,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusBadRequest, false, "Validation failed!", errors)
}

// ErrorResponse writes err as a JSON failure. Internal errors are logged and
// reported with a generic message only.
func ErrorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindUnauthorized:
		status = fiber.StatusUnauthorized
	case apperr.KindValidation:
		status = fiber.StatusBadRequest
	case apperr.KindNotFound:
		status = fiber.StatusNotFound
	case apperr.KindConflict:
		status = fiber.StatusConflict
	default:
		logger.L.Error("request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
	}
	return JsonResponse(c, status, false, apperr.PublicMessage(err), nil)
}
