package controllers

import (
	"context"
	"encoding/json"
	"errors"

	"lms/apperr"
	"lms/middleware"
	courseModels "lms/models/course"
	"lms/services/progress"
	validators "lms/validators/course"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminCreatePackage creates a content package (video, document, ...) that
// module items and prerequisites can reference
func AdminCreatePackage(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	reqData := c.Locals("validatedPackage").(*validators.CreatePackageRequest)

	cfg, err := json.Marshal(reqData.Config)
	if err != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(err, "encode package config"))
	}
	pkg := courseModels.ContentPackage{
		ClientID:    p.ClientID,
		ContentType: reqData.ContentType,
		Title:       reqData.Title,
		URL:         reqData.URL,
		Config:      datatypes.JSON(cfg),
	}
	if err := db().WithContext(c.UserContext()).Create(&pkg).Error; err != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(err, "create package"))
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Package created successfully!", pkg)
}

// packageExists checks that the tenant owns a live package of the given type.
func packageExists(ctx context.Context, clientID, packageID uint, typ string) error {
	var count int64
	q := db().WithContext(ctx)
	if progress.ContentType(typ) == progress.Assessment {
		q = q.Model(&courseModels.AssessmentPackage{}).
			Where("id = ? AND client_id = ? AND is_deleted = ?", packageID, clientID, false)
	} else {
		q = q.Model(&courseModels.ContentPackage{}).
			Where("id = ? AND client_id = ? AND content_type = ? AND is_deleted = ?", packageID, clientID, typ, false)
	}
	if err := q.Count(&count).Error; err != nil {
		return apperr.Wrap(err, "load package")
	}
	if count == 0 {
		return apperr.NotFound("Content package not found!")
	}
	return nil
}

// AdminAttachContent places a package in a module
func AdminAttachContent(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	reqData := c.Locals("validatedContent").(*validators.AttachContentRequest)
	ctx := c.UserContext()

	var module courseModels.Module
	err := db().WithContext(ctx).
		Where("id = ? AND course_id = ? AND client_id = ? AND is_deleted = ?", reqData.ModuleID, reqData.CourseID, p.ClientID, false).
		First(&module).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return middleware.ErrorResponse(c, apperr.NotFound("Module not found!"))
	}
	if err != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(err, "load module"))
	}
	if err := packageExists(ctx, p.ClientID, reqData.ContentID, reqData.ContentType); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	item := courseModels.CourseModuleContent{
		ClientID:    p.ClientID,
		CourseID:    reqData.CourseID,
		ModuleID:    module.ID,
		ContentType: reqData.ContentType,
		ContentID:   reqData.ContentID,
		Title:       reqData.Title,
		IsRequired:  reqData.Required(),
		SortOrder:   reqData.SortOrder,
	}
	if err := db().WithContext(ctx).Create(&item).Error; err != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(err, "create module content"))
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Content added successfully!", item)
}

// AdminAttachPrerequisite makes a package a prerequisite of a course
func AdminAttachPrerequisite(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	reqData := c.Locals("validatedPrerequisite").(*validators.AttachPrerequisiteRequest)
	ctx := c.UserContext()

	if _, err := findCourse(ctx, p.ClientID, reqData.CourseID); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	if err := packageExists(ctx, p.ClientID, reqData.PrerequisiteID, reqData.PrerequisiteType); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	pre := courseModels.CoursePrerequisite{
		ClientID:         p.ClientID,
		CourseID:         reqData.CourseID,
		PrerequisiteID:   reqData.PrerequisiteID,
		PrerequisiteType: reqData.PrerequisiteType,
		Title:            reqData.Title,
		IsRequired:       reqData.Required(),
		SortOrder:        reqData.SortOrder,
	}
	if err := db().WithContext(ctx).Create(&pre).Error; err != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(err, "create prerequisite"))
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Prerequisite added successfully!", pre)
}

// AdminDeleteContent soft-deletes a module item. Learner progress rows stay;
// the next rollup simply stops counting the item.
func AdminDeleteContent(c *fiber.Ctx) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized", nil)
	}
	contentID := c.Locals("contentID").(uint)

	res := db().WithContext(c.UserContext()).Model(&courseModels.CourseModuleContent{}).
		Where("id = ? AND client_id = ? AND is_deleted = ?", contentID, p.ClientID, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return middleware.ErrorResponse(c, apperr.Wrap(res.Error, "delete module content"))
	}
	if res.RowsAffected == 0 {
		return middleware.ErrorResponse(c, apperr.NotFound("Content not found!"))
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Content deleted successfully!", nil)
}
