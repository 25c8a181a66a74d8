package controllers

import (
	"lms/middleware"
	"lms/services/rollup"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GetCourseProgress returns the cached course rollup.
// GET /progress/get?course_id=
func GetCourseProgress(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	reqData := c.Locals("validatedCourse").(*validators.CourseRequest)

	if _, err := findCourse(c.UserContext(), p.ClientID, reqData.CourseID); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	cp, err := rollupService.GetCourseProgress(c.UserContext(), db(), p.UserID, reqData.CourseID, p.ClientID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course progress fetched successfully!", fiber.Map{
		"completion_percentage": cp.CompletionPercentage,
		"status":                cp.Status,
		"progress":              cp,
	})
}

// CalculateCourseProgress forces a recompute of the caller's course rollup.
// POST /progress/calculate
func CalculateCourseProgress(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	reqData := c.Locals("validatedCourse").(*validators.CourseRequest)
	ctx := c.UserContext()
	if _, err := findCourse(ctx, p.ClientID, reqData.CourseID); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	var summary *rollup.Summary
	err := db().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		summary, err = rollupService.CalculateCourseProgress(ctx, tx, p.UserID, reqData.CourseID, p.ClientID)
		return err
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if summary.JustCompleted {
		notifyCompleted(ctx, p.UserID, p.ClientID, p.Email, []uint{reqData.CourseID})
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course progress calculated successfully!", fiber.Map{
		"completion_percentage": summary.Progress.CompletionPercentage,
		"status":                summary.Progress.Status,
		"progress":              summary.Progress,
		"modules":               summary.Modules,
		"prerequisites":         summary.Prerequisites,
	})
}
