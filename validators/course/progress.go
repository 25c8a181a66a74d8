package courseValidator

import (
	"lms/middleware"
	"lms/services/progress"

	"github.com/gofiber/fiber/v2"
)

// ProgressRequest addresses one leaf context and carries the viewer's metrics.
type ProgressRequest struct {
	Type           progress.ContentType `json:"-"`
	CourseID       uint                 `json:"course_id" validate:"required,gt=0"`
	ContentID      *uint                `json:"content_id" validate:"omitempty,gt=0"`
	PrerequisiteID *uint                `json:"prerequisite_id" validate:"omitempty,gt=0"`
	progress.Metrics
}

// Ref is the context the request points at.
func (r *ProgressRequest) Ref() progress.ContextRef {
	if r.PrerequisiteID != nil {
		return progress.PrerequisiteContext(*r.PrerequisiteID)
	}
	if r.ContentID != nil {
		return progress.ModuleContext(*r.ContentID)
	}
	return progress.ContextRef{}
}

func contentTypeParam(c *fiber.Ctx) (progress.ContentType, bool) {
	t, err := progress.ParseContentType(c.Params("type"))
	if err != nil {
		return "", false
	}
	return t, true
}

// UpdateProgress validates POST content/:type/progress and content/:type/markComplete.
func UpdateProgress() fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, ok := contentTypeParam(c)
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid content type!", nil)
		}
		reqData := new(ProgressRequest)
		if err := c.BodyParser(reqData); err != nil {
			return invalidBody(c)
		}
		reqData.Type = t
		extra := exactlyOne(reqData.ContentID, reqData.PrerequisiteID)
		if reqData.TimeSpent < 0 {
			if extra == nil {
				extra = map[string]string{}
			}
			extra["time_spent"] = "time_spent must be at least 0!"
		}
		if errs := check(reqData, extra); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedProgress", reqData)
		return c.Next()
	}
}

// GetProgress validates GET content/:type/progress.
func GetProgress() fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, ok := contentTypeParam(c)
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid content type!", nil)
		}
		query := new(struct {
			CourseID       uint  `query:"course_id"`
			ContentID      *uint `query:"content_id"`
			PrerequisiteID *uint `query:"prerequisite_id"`
		})
		if err := c.QueryParser(query); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}
		reqData := &ProgressRequest{
			Type:           t,
			CourseID:       query.CourseID,
			ContentID:      query.ContentID,
			PrerequisiteID: query.PrerequisiteID,
		}
		if errs := check(reqData, exactlyOne(reqData.ContentID, reqData.PrerequisiteID)); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedProgress", reqData)
		return c.Next()
	}
}

// CourseRequest names the course a rollup call is about.
type CourseRequest struct {
	CourseID uint `json:"course_id" query:"course_id" validate:"required,gt=0"`
}

// CourseProgressQuery validates GET progress/get.
func CourseProgressQuery() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CourseRequest)
		if err := c.QueryParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid query parameters!", nil)
		}
		if errs := check(reqData, nil); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedCourse", reqData)
		return c.Next()
	}
}

// CalculateProgress validates POST progress/calculate.
func CalculateProgress() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CourseRequest)
		if err := c.BodyParser(reqData); err != nil {
			return invalidBody(c)
		}
		if errs := check(reqData, nil); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedCourse", reqData)
		return c.Next()
	}
}
