package controllers

import (
	"fmt"

	"lms/logger"
	"lms/middleware"
	"lms/services/assessment"
	"lms/services/completion"
	"lms/services/progress"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LaunchAssessment starts or resumes the caller's attempt for an assessment
// placed in a module or as a prerequisite.
// POST /assessment/launch
func LaunchAssessment(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	reqData := c.Locals("validatedLaunch").(*validators.LaunchRequest)
	ctx := c.UserContext()

	var ref progress.ContextRef
	if reqData.PrerequisiteID != nil {
		ref = progress.PrerequisiteContext(*reqData.PrerequisiteID)
	} else {
		ref = progress.ModuleContext(*reqData.ContentID)
	}
	target, err := progress.ResolveTarget(ctx, db(), p, progress.Assessment, reqData.CourseID, ref)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	launch, err := player.CreateOrGetAttempt(ctx, db(), assessment.LaunchRequest{
		AssessmentID:   target.PackageID,
		UserID:         p.UserID,
		ClientID:       p.ClientID,
		CourseID:       reqData.CourseID,
		ContentID:      reqData.ContentID,
		PrerequisiteID: reqData.PrerequisiteID,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	message := "Attempt started successfully!"
	if launch.Resumed {
		message = "Attempt resumed successfully!"
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, message, launch)
}

// SaveAnswer stores one answer of an in-progress attempt.
// POST /assessment/saveAnswer
func SaveAnswer(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	reqData := c.Locals("validatedAnswer").(*validators.SaveAnswerRequest)

	err := player.SaveAnswer(c.UserContext(), db(), assessment.SaveAnswerRequest{
		AttemptID:       reqData.AttemptID,
		UserID:          p.UserID,
		ClientID:        p.ClientID,
		QuestionID:      reqData.QuestionID,
		Answer:          reqData.Answer,
		CurrentQuestion: reqData.CurrentQuestion,
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Answer saved successfully!", nil)
}

// UpdateTimeRemaining persists the player's countdown.
// POST /assessment/updateTime
func UpdateTimeRemaining(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	reqData := c.Locals("validatedTime").(*validators.UpdateTimeRequest)

	attempt, err := player.UpdateTimeRemaining(c.UserContext(), db(), reqData.AttemptID, p.UserID, p.ClientID, *reqData.TimeRemaining)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Time updated successfully!", fiber.Map{
		"time_remaining": attempt.TimeRemaining,
	})
}

// GetAttempt returns one of the caller's attempts with its saved answers.
// GET /assessment/attempt/:id
func GetAttempt(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	attemptID := c.Locals("attemptID").(uint)

	launch, err := player.GetAttempt(c.UserContext(), db(), attemptID, p.UserID, p.ClientID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Attempt fetched successfully!", launch)
}

// SubmitAssessment grades the attempt and applies the completion policy to
// its context. Grading and progress recording commit together.
// POST /assessment/submit
func SubmitAssessment(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	reqData := c.Locals("validatedSubmit").(*validators.SubmitRequest)
	ctx := c.UserContext()

	var (
		submitted *assessment.SubmitResult
		tracked   *completion.TrackResult
		recordErr error
	)
	err := db().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		submitted, err = player.SubmitAssessment(ctx, tx, reqData.AttemptID, p.UserID, p.ClientID)
		if err != nil {
			return err
		}
		if submitted.AlreadySubmitted {
			return nil
		}
		// the graded attempt commits even when its context can no longer be
		// recorded; the tracker rolls back to its own savepoint
		a := submitted.Attempt
		tracked, recordErr = tracker(tx).RecordAssessmentAttempt(ctx, p, completion.AttemptRecord{
			Attempt:       a,
			AttemptsUsed:  submitted.AttemptsUsed,
			CompletionDue: assessment.CompletionDue(a.Passed, submitted.AttemptsUsed, submitted.MaxAttempts),
		})
		if recordErr != nil {
			logger.L.Warn("assessment context not recorded",
				"attempt_id", a.ID, "user_id", p.UserID, "course_id", a.CourseID, "error", recordErr)
		}
		return nil
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	a := submitted.Attempt
	due := assessment.CompletionDue(a.Passed, submitted.AttemptsUsed, submitted.MaxAttempts) && recordErr == nil
	data := fiber.Map{
		"attempt_id":        a.ID,
		"score":             a.Score,
		"max_score":         a.MaxScore,
		"percentage":        a.Percentage,
		"passed":            a.Passed,
		"attempts_used":     submitted.AttemptsUsed,
		"max_attempts":      submitted.MaxAttempts,
		"already_submitted": submitted.AlreadySubmitted,
		"content_completed": due,
		"redirect_url":      redirectURL(a.CourseID),
	}
	if tracked != nil && tracked.Cascade != nil {
		logCascade(tracked.Cascade, "user_id", p.UserID, "course_id", a.CourseID, "content_type", string(progress.Assessment))
		data["completed_courses"] = tracked.Cascade.CompletedCourses
		notifyCompleted(ctx, p.UserID, p.ClientID, p.Email, tracked.Cascade.CompletedCourses)
	}
	if submitted.AlreadySubmitted {
		logger.L.Debug("attempt resubmitted", "attempt_id", a.ID, "user_id", p.UserID)
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Attempt already submitted!", data)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Assessment submitted successfully!", data)
}

func redirectURL(courseID uint) string {
	if courseID == 0 {
		return ""
	}
	return fmt.Sprintf("/course/%d", courseID)
}
