package controllers

import (
	"lms/apperr"
	"lms/middleware"
	courseModels "lms/models/course"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// AdminCreateCourse creates a new course in the admin's tenant
func AdminCreateCourse(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	reqData := c.Locals("validatedCourse").(*validators.CreateCourseRequest)

	course := courseModels.Course{
		ClientID:    p.ClientID,
		Title:       reqData.Title,
		Description: reqData.Description,
		Status:      "DRAFT",
		IsPublished: reqData.Publish,
	}
	if reqData.Publish {
		course.Status = "ACTIVE"
	}
	if err := db().WithContext(c.UserContext()).Create(&course).Error; err != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(err, "create course"))
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", course)
}

// AdminPublishCourse makes a course visible for enrollment
func AdminPublishCourse(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	courseID := c.Locals("courseID").(uint)

	course, err := findCourse(c.UserContext(), p.ClientID, courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	course.IsPublished = true
	course.Status = "ACTIVE"
	if err := db().WithContext(c.UserContext()).Save(course).Error; err != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(err, "publish course"))
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course published successfully!", course)
}

// AdminGetCourseDetails returns a course with its modules, items and prerequisites
func AdminGetCourseDetails(c *fiber.Ctx) error {
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

	var modules []courseModels.Module
	if err := db().WithContext(ctx).
		Where("course_id = ? AND client_id = ? AND is_deleted = ?", courseID, p.ClientID, false).
		Order("sort_order asc, id asc").Find(&modules).Error; err != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(err, "list modules"))
	}
	var items []courseModels.CourseModuleContent
	if err := db().WithContext(ctx).
		Where("course_id = ? AND client_id = ? AND is_deleted = ?", courseID, p.ClientID, false).
		Order("sort_order asc, id asc").Find(&items).Error; err != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(err, "list module contents"))
	}
	var prereqs []courseModels.CoursePrerequisite
	if err := db().WithContext(ctx).
		Where("course_id = ? AND client_id = ? AND is_deleted = ?", courseID, p.ClientID, false).
		Order("sort_order asc, id asc").Find(&prereqs).Error; err != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(err, "list prerequisites"))
	}

	byModule := map[uint][]courseModels.CourseModuleContent{}
	for _, it := range items {
		byModule[it.ModuleID] = append(byModule[it.ModuleID], it)
	}
	outModules := make([]fiber.Map, 0, len(modules))
	for _, m := range modules {
		contents := byModule[m.ID]
		if contents == nil {
			contents = []courseModels.CourseModuleContent{}
		}
		outModules = append(outModules, fiber.Map{"module": m, "contents": contents})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course details fetched successfully!", fiber.Map{
		"course":        course,
		"modules":       outModules,
		"prerequisites": prereqs,
	})
}
