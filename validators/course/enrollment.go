package courseValidator

import (
	"github.com/gofiber/fiber/v2"
)

// EnrollCourse validates POST course/:id/enroll.
func EnrollCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := paramID(c, "id")
		if !ok {
			return invalidParam(c, "Course ID")
		}
		c.Locals("courseID", courseID)
		return c.Next()
	}
}

// CourseParam validates the :id course route parameter.
func CourseParam() fiber.Handler {
	return EnrollCourse()
}

// ContentParam validates the :content_id route parameter.
func ContentParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "content_id")
		if !ok {
			return invalidParam(c, "Content ID")
		}
		c.Locals("contentID", id)
		return c.Next()
	}
}
