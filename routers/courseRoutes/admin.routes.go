package courseRoutes

import (
	"lms/auth"
	controllers "lms/controllers/course"
	"lms/middleware"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminCourseRoutes sets up tenant-scoped authoring routes
func SetupAdminCourseRoutes(app *fiber.App) {
	admin := app.Group("/admin", middleware.JWTMiddleware, middleware.RequireRole(auth.RoleAdmin))

	// Courses and modules
	admin.Post("/course/create", validators.CreateCourseAdmin(), controllers.AdminCreateCourse)
	admin.Get("/course/:id", validators.CourseParam(), controllers.AdminGetCourseDetails)
	admin.Post("/course/:id/publish", validators.CourseParam(), controllers.AdminPublishCourse)
	admin.Post("/course/:id/module", validators.CreateModule(), controllers.AdminCreateModule)

	// Packages and their placement
	admin.Post("/package", validators.CreatePackage(), controllers.AdminCreatePackage)
	admin.Post("/assessment", validators.CreateAssessment(), controllers.AdminCreateAssessment)
	admin.Post("/course/:course_id/module/:module_id/content", validators.AttachModuleContent(), controllers.AdminAttachContent)
	admin.Post("/course/:id/prerequisite", validators.AttachPrerequisite(), controllers.AdminAttachPrerequisite)
	admin.Delete("/content/:content_id", validators.ContentParam(), controllers.AdminDeleteContent)
}
