package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up all learner-facing routes
func SetupCourseRoutes(app *fiber.App) {
	// Leaf progress, one store per content type
	contentGroup := app.Group("/content", middleware.JWTMiddleware)
	contentGroup.Post("/:type/progress", validators.UpdateProgress(), controllers.UpdateContentProgress)
	contentGroup.Post("/:type/markComplete", validators.UpdateProgress(), controllers.MarkContentComplete)
	contentGroup.Get("/:type/progress", validators.GetProgress(), controllers.GetContentProgress)

	// Assessment player
	assessmentGroup := app.Group("/assessment", middleware.JWTMiddleware)
	assessmentGroup.Post("/launch", validators.LaunchAssessment(), controllers.LaunchAssessment)
	assessmentGroup.Post("/saveAnswer", validators.SaveAnswer(), controllers.SaveAnswer)
	assessmentGroup.Post("/updateTime", validators.UpdateTime(), controllers.UpdateTimeRemaining)
	assessmentGroup.Post("/submit", validators.SubmitAssessment(), controllers.SubmitAssessment)
	assessmentGroup.Get("/attempt/:id", validators.AttemptParam(), controllers.GetAttempt)

	// Course rollup
	progressGroup := app.Group("/progress", middleware.JWTMiddleware)
	progressGroup.Get("/get", validators.CourseProgressQuery(), controllers.GetCourseProgress)
	progressGroup.Post("/calculate", validators.CalculateProgress(), controllers.CalculateCourseProgress)

	// Enrollment
	app.Post("/course/:id/enroll", middleware.JWTMiddleware, validators.EnrollCourse(), controllers.EnrollInCourse)

	userGroup := app.Group("/user", middleware.JWTMiddleware)
	userGroup.Get("/enrollments", controllers.GetEnrollments)
	userGroup.Get("/certificates", controllers.GetUserCertificates)
}
