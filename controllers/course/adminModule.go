package controllers

import (
	"lms/apperr"
	"lms/middleware"
	courseModels "lms/models/course"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// AdminCreateModule adds a module to a course
func AdminCreateModule(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	reqData := c.Locals("validatedModule").(*validators.CreateModuleRequest)

	if _, err := findCourse(c.UserContext(), p.ClientID, reqData.CourseID); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	module := courseModels.Module{
		ClientID:    p.ClientID,
		CourseID:    reqData.CourseID,
		Title:       reqData.Title,
		Description: reqData.Description,
		SortOrder:   reqData.SortOrder,
	}
	if err := db().WithContext(c.UserContext()).Create(&module).Error; err != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(err, "create module"))
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Module created successfully!", module)
}
