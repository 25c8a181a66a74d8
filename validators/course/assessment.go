package courseValidator

import (
	"lms/middleware"
	"lms/services/assessment"

	"github.com/gofiber/fiber/v2"
)

type LaunchRequest struct {
	CourseID       uint  `json:"course_id" validate:"required,gt=0"`
	ContentID      *uint `json:"content_id" validate:"omitempty,gt=0"`
	PrerequisiteID *uint `json:"prerequisite_id" validate:"omitempty,gt=0"`
}

type SaveAnswerRequest struct {
	AttemptID       uint              `json:"attempt_id" validate:"required,gt=0"`
	QuestionID      uint              `json:"question_id" validate:"required,gt=0"`
	Answer          assessment.Answer `json:"answer"`
	CurrentQuestion *int              `json:"current_question" validate:"omitempty,gte=0"`
}

type UpdateTimeRequest struct {
	AttemptID     uint `json:"attempt_id" validate:"required,gt=0"`
	TimeRemaining *int `json:"time_remaining" validate:"omitempty,gte=0"`
}

type SubmitRequest struct {
	AttemptID uint `json:"attempt_id" validate:"required,gt=0"`
}

// LaunchAssessment validates POST assessment/launch.
func LaunchAssessment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(LaunchRequest)
		if err := c.BodyParser(reqData); err != nil {
			return invalidBody(c)
		}
		if errs := check(reqData, exactlyOne(reqData.ContentID, reqData.PrerequisiteID)); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedLaunch", reqData)
		return c.Next()
	}
}

// SaveAnswer validates POST assessment/saveAnswer.
func SaveAnswer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(SaveAnswerRequest)
		if err := c.BodyParser(reqData); err != nil {
			return invalidBody(c)
		}
		var extra map[string]string
		if reqData.Answer.Empty() {
			extra = map[string]string{"answer": "answer is required!"}
		}
		if errs := check(reqData, extra); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedAnswer", reqData)
		return c.Next()
	}
}

// UpdateTime validates POST assessment/updateTime.
func UpdateTime() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(UpdateTimeRequest)
		if err := c.BodyParser(reqData); err != nil {
			return invalidBody(c)
		}
		var extra map[string]string
		if reqData.TimeRemaining == nil {
			extra = map[string]string{"time_remaining": "time_remaining is required!"}
		}
		if errs := check(reqData, extra); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedTime", reqData)
		return c.Next()
	}
}

// SubmitAssessment validates POST assessment/submit.
func SubmitAssessment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(SubmitRequest)
		if err := c.BodyParser(reqData); err != nil {
			return invalidBody(c)
		}
		if errs := check(reqData, nil); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedSubmit", reqData)
		return c.Next()
	}
}

// AttemptParam validates GET assessment/attempt/:id.
func AttemptParam() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c, "id")
		if !ok {
			return invalidParam(c, "Attempt ID")
		}
		c.Locals("attemptID", id)
		return c.Next()
	}
}
