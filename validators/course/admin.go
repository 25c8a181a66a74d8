package courseValidator

import (
	"strconv"
	"strings"

	"lms/middleware"
	courseModels "lms/models/course"
	"lms/services/progress"

	"github.com/gofiber/fiber/v2"
)

// ============ Course / Module ============

type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Publish     bool   `json:"publish"`
}

type CreateModuleRequest struct {
	CourseID    uint   `json:"-"`
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=2000"`
	SortOrder   int    `json:"sort_order" validate:"gte=0"`
}

// CreateCourseAdmin validates admin course creation request
func CreateCourseAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreateCourseRequest)
		if err := c.BodyParser(reqData); err != nil {
			return invalidBody(c)
		}
		reqData.Title = strings.TrimSpace(reqData.Title)
		reqData.Description = strings.TrimSpace(reqData.Description)
		if errs := check(reqData, nil); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedCourse", reqData)
		return c.Next()
	}
}

// CreateModule validates POST admin/course/:id/module
func CreateModule() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := paramID(c, "id")
		if !ok {
			return invalidParam(c, "Course ID")
		}
		reqData := new(CreateModuleRequest)
		if err := c.BodyParser(reqData); err != nil {
			return invalidBody(c)
		}
		reqData.CourseID = courseID
		reqData.Title = strings.TrimSpace(reqData.Title)
		if errs := check(reqData, nil); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedModule", reqData)
		return c.Next()
	}
}

// ============ Packages ============

type CreatePackageRequest struct {
	ContentType string                     `json:"content_type" validate:"required"`
	Title       string                     `json:"title" validate:"required,min=3,max=200"`
	URL         string                     `json:"url" validate:"omitempty,url"`
	Config      courseModels.PackageConfig `json:"config"`
}

// CreatePackage validates POST admin/package
func CreatePackage() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreatePackageRequest)
		if err := c.BodyParser(reqData); err != nil {
			return invalidBody(c)
		}
		reqData.Title = strings.TrimSpace(reqData.Title)
		extra := map[string]string{}
		t, err := progress.ParseContentType(reqData.ContentType)
		switch {
		case err != nil:
			extra["content_type"] = "content_type is invalid!"
		case t == progress.Assessment:
			extra["content_type"] = "Create assessments through the assessment endpoint!"
		default:
			reqData.ContentType = string(t)
		}
		cfg := reqData.Config
		if cfg.CompletionThreshold < 0 || cfg.CompletionThreshold > 100 {
			extra["config.completion_threshold"] = "completion_threshold must be between 0 and 100!"
		}
		if cfg.TotalPages < 0 || cfg.MinTimeSeconds < 0 || cfg.DurationSeconds < 0 {
			extra["config"] = "config values must not be negative!"
		}
		if errs := check(reqData, extra); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedPackage", reqData)
		return c.Next()
	}
}

// ============ Module content / Prerequisites ============

type AttachContentRequest struct {
	CourseID    uint   `json:"-"`
	ModuleID    uint   `json:"-"`
	ContentType string `json:"content_type" validate:"required"`
	ContentID   uint   `json:"content_id" validate:"required,gt=0"`
	Title       string `json:"title" validate:"max=200"`
	IsRequired  *bool  `json:"is_required"`
	SortOrder   int    `json:"sort_order" validate:"gte=0"`
}

type AttachPrerequisiteRequest struct {
	CourseID         uint   `json:"-"`
	PrerequisiteType string `json:"prerequisite_type" validate:"required"`
	PrerequisiteID   uint   `json:"prerequisite_id" validate:"required,gt=0"`
	Title            string `json:"title" validate:"max=200"`
	IsRequired       *bool  `json:"is_required"`
	SortOrder        int    `json:"sort_order" validate:"gte=0"`
}

// Required defaults to true when the author leaves it out.
func (r *AttachContentRequest) Required() bool { return r.IsRequired == nil || *r.IsRequired }

func (r *AttachPrerequisiteRequest) Required() bool { return r.IsRequired == nil || *r.IsRequired }

func normalizeType(raw string, field string, extra map[string]string) string {
	t, err := progress.ParseContentType(raw)
	if err != nil {
		extra[field] = field + " is invalid!"
		return raw
	}
	return string(t)
}

// AttachModuleContent validates POST admin/course/:course_id/module/:module_id/content
func AttachModuleContent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := paramID(c, "course_id")
		if !ok {
			return invalidParam(c, "Course ID")
		}
		moduleID, ok := paramID(c, "module_id")
		if !ok {
			return invalidParam(c, "Module ID")
		}
		reqData := new(AttachContentRequest)
		if err := c.BodyParser(reqData); err != nil {
			return invalidBody(c)
		}
		reqData.CourseID = courseID
		reqData.ModuleID = moduleID
		extra := map[string]string{}
		reqData.ContentType = normalizeType(reqData.ContentType, "content_type", extra)
		if errs := check(reqData, extra); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedContent", reqData)
		return c.Next()
	}
}

// AttachPrerequisite validates POST admin/course/:id/prerequisite
func AttachPrerequisite() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := paramID(c, "id")
		if !ok {
			return invalidParam(c, "Course ID")
		}
		reqData := new(AttachPrerequisiteRequest)
		if err := c.BodyParser(reqData); err != nil {
			return invalidBody(c)
		}
		reqData.CourseID = courseID
		extra := map[string]string{}
		reqData.PrerequisiteType = normalizeType(reqData.PrerequisiteType, "prerequisite_type", extra)
		if errs := check(reqData, extra); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedPrerequisite", reqData)
		return c.Next()
	}
}

// ============ Assessments ============

type OptionInput struct {
	OptionText string `json:"option_text" validate:"required,max=500"`
	IsCorrect  bool   `json:"is_correct"`
}

type QuestionInput struct {
	QuestionType string        `json:"question_type" validate:"required,oneof=single_choice multiple_choice true_false short_answer"`
	Prompt       string        `json:"prompt" validate:"required"`
	CorrectText  string        `json:"correct_text"`
	Points       *float64      `json:"points" validate:"omitempty,gte=0"`
	Options      []OptionInput `json:"options" validate:"dive"`
}

type CreateAssessmentRequest struct {
	Title            string          `json:"title" validate:"required,min=3,max=200"`
	PassingScore     float64         `json:"passing_score" validate:"gte=0,lte=100"`
	NumAttempts      int             `json:"num_attempts" validate:"gte=0"`
	TimeLimitMinutes int             `json:"time_limit_minutes" validate:"gte=0"`
	Questions        []QuestionInput `json:"questions" validate:"required,min=1,dive"`
}

// questionErrors checks what struct tags cannot: the answer key of each question.
func questionErrors(qs []QuestionInput) map[string]string {
	extra := map[string]string{}
	for i, q := range qs {
		key := "questions[" + strconv.Itoa(i) + "]"
		correct := 0
		for _, o := range q.Options {
			if o.IsCorrect {
				correct++
			}
		}
		switch q.QuestionType {
		case courseModels.QuestionShortAnswer:
			if strings.TrimSpace(q.CorrectText) == "" {
				extra[key+".correct_text"] = "correct_text is required for short answers!"
			}
		case courseModels.QuestionMultipleChoice:
			if len(q.Options) < 2 || correct < 1 {
				extra[key+".options"] = "At least two options and one correct option are required!"
			}
		case courseModels.QuestionSingleChoice, courseModels.QuestionTrueFalse:
			if len(q.Options) < 2 || correct != 1 {
				extra[key+".options"] = "At least two options and exactly one correct option are required!"
			}
		}
	}
	return extra
}

// CreateAssessment validates POST admin/assessment
func CreateAssessment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreateAssessmentRequest)
		if err := c.BodyParser(reqData); err != nil {
			return invalidBody(c)
		}
		reqData.Title = strings.TrimSpace(reqData.Title)
		if errs := check(reqData, questionErrors(reqData.Questions)); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}
		c.Locals("validatedAssessment", reqData)
		return c.Next()
	}
}
