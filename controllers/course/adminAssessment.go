package controllers

import (
	"lms/apperr"
	"lms/middleware"
	courseModels "lms/models/course"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminCreateAssessment creates an assessment package with its questions and options
func AdminCreateAssessment(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	reqData := c.Locals("validatedAssessment").(*validators.CreateAssessmentRequest)

	pkg := courseModels.AssessmentPackage{
		ClientID:         p.ClientID,
		Title:            reqData.Title,
		PassingScore:     reqData.PassingScore,
		NumAttempts:      reqData.NumAttempts,
		TimeLimitMinutes: reqData.TimeLimitMinutes,
	}
	err := db().WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&pkg).Error; err != nil {
			return apperr.Wrap(err, "create assessment")
		}
		for i, q := range reqData.Questions {
			points := 1.0
			if q.Points != nil {
				points = *q.Points
			}
			question := courseModels.AssessmentQuestion{
				ClientID:     p.ClientID,
				AssessmentID: pkg.ID,
				QuestionType: q.QuestionType,
				Prompt:       q.Prompt,
				CorrectText:  q.CorrectText,
				Points:       points,
				SortOrder:    i,
			}
			for j, o := range q.Options {
				question.Options = append(question.Options, courseModels.AssessmentOption{
					OptionText: o.OptionText,
					IsCorrect:  o.IsCorrect,
					SortOrder:  j,
				})
			}
			if err := tx.Create(&question).Error; err != nil {
				return apperr.Wrap(err, "create question")
			}
		}
		return nil
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Assessment created successfully!", fiber.Map{
		"assessment":     pkg,
		"question_count": len(reqData.Questions),
	})
}
