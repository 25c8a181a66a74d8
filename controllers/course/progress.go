package controllers

import (
	"lms/middleware"
	"lms/services/completion"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

func progressRequest(c *fiber.Ctx) (completion.Request, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return completion.Request{}, false
	}
	reqData, ok := c.Locals("validatedProgress").(*validators.ProgressRequest)
	if !ok {
		return completion.Request{}, false
	}
	return completion.Request{
		Principal: p,
		Type:      reqData.Type,
		CourseID:  reqData.CourseID,
		Ref:       reqData.Ref(),
		Metrics:   reqData.Metrics,
	}, true
}

func trackResponse(c *fiber.Ctx, message string, req completion.Request, res *completion.TrackResult) error {
	data := fiber.Map{
		"progress":        res.Progress,
		"is_completed":    res.Progress != nil && res.Progress.Base().IsCompleted,
		"became_complete": res.BecameComplete,
	}
	if res.Cascade != nil {
		logCascade(res.Cascade, "user_id", req.Principal.UserID, "course_id", req.CourseID, "content_type", string(req.Type))
		data["completed_courses"] = res.Cascade.CompletedCourses
		if cp := res.Cascade.Rollups[req.CourseID]; cp != nil {
			data["course_progress"] = cp
		}
		notifyCompleted(c.UserContext(), req.Principal.UserID, req.Principal.ClientID, req.Principal.Email, res.Cascade.CompletedCourses)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, data)
}

// UpdateContentProgress records viewer metrics for one leaf item.
// POST /content/:type/progress
func UpdateContentProgress(c *fiber.Ctx) error {
	req, ok := progressRequest(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	res, err := tracker(db()).Update(c.UserContext(), req)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return trackResponse(c, "Progress updated successfully!", req, res)
}

// MarkContentComplete force-completes one leaf item.
// POST /content/:type/markComplete
func MarkContentComplete(c *fiber.Ctx) error {
	req, ok := progressRequest(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	res, err := tracker(db()).MarkComplete(c.UserContext(), req)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return trackResponse(c, "Content marked as complete!", req, res)
}

// GetContentProgress returns the caller's progress on one leaf item.
// GET /content/:type/progress
func GetContentProgress(c *fiber.Ctx) error {
	req, ok := progressRequest(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	row, err := tracker(db()).Get(c.UserContext(), req)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress fetched successfully!", fiber.Map{
		"progress":     row,
		"is_completed": row.Base().IsCompleted,
	})
}
