package controllers

import (
	"lms/apperr"
	"lms/middleware"
	courseModels "lms/models/course"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnrollInCourse enrolls the caller in a published course of their tenant.
// Enrolling twice returns the existing enrollment.
// POST /course/:id/enroll
func EnrollInCourse(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	courseID := c.Locals("courseID").(uint)
	ctx := c.UserContext()

	course, err := findCourse(ctx, p.ClientID, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !course.IsPublished {
		return middleware.ErrorResponse(c, apperr.NotFound("Course not found or not active!"))
	}

	var (
		enrollment courseModels.Enrollment
		created    bool
	)
	err = db().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollment = courseModels.Enrollment{
			ClientID: p.ClientID,
			UserID:   p.UserID,
			CourseID: courseID,
			Status:   courseModels.EnrollmentEnrolled,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}, {Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).Create(&enrollment)
		if res.Error != nil {
			return apperr.Wrap(res.Error, "create enrollment")
		}
		created = res.RowsAffected > 0

		// seeds totals and mirrors any progress made before enrolling
		if _, err := rollupService.CalculateCourseProgress(ctx, tx, p.UserID, courseID, p.ClientID); err != nil {
			return err
		}
		return tx.Where("client_id = ? AND user_id = ? AND course_id = ?", p.ClientID, p.UserID, courseID).
			First(&enrollment).Error
	})
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if !created {
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Already enrolled in this course!", enrollment)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrolled in course successfully!", enrollment)
}

// GetEnrollments lists the caller's enrollments with their courses.
// GET /user/enrollments
func GetEnrollments(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}

	var enrollments []courseModels.Enrollment
	if err := db().WithContext(c.UserContext()).
		Where("client_id = ? AND user_id = ?", p.ClientID, p.UserID).
		Order("created_at desc").
		Find(&enrollments).Error; err != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(err, "list enrollments"))
	}

	courseIDs := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		courseIDs = append(courseIDs, e.CourseID)
	}
	courses := map[uint]courseModels.Course{}
	if len(courseIDs) > 0 {
		var rows []courseModels.Course
		if err := db().WithContext(c.UserContext()).
			Where("id IN ? AND client_id = ?", courseIDs, p.ClientID).
			Find(&rows).Error; err != nil {
			return middleware.ErrorResponse(c, apperr.Wrap(err, "list enrolled courses"))
		}
		for _, r := range rows {
			courses[r.ID] = r
		}
	}

	out := make([]fiber.Map, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, fiber.Map{
			"enrollment": e,
			"course":     courses[e.CourseID],
		})
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", out)
}
