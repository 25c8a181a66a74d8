package progress

import (
	"context"
	"encoding/json"
	"errors"

	"lms/apperr"
	"lms/auth"
	courseModels "lms/models/course"

	"gorm.io/gorm"
)

// ResolveTarget loads the context a request points at, scoped to the caller's
// tenant and the given course, and checks that it holds content of type typ.
func ResolveTarget(ctx context.Context, tx *gorm.DB, p auth.Principal, typ ContentType, courseID uint, ref ContextRef) (Target, error) {
	if !p.Valid() {
		return Target{}, apperr.Unauthorized("Unauthorized")
	}
	if courseID == 0 || ref.ID == 0 {
		return Target{}, apperr.Validation("course_id and content_id or prerequisite_id are required!")
	}

	t := Target{
		Scope: Scope{UserID: p.UserID, ClientID: p.ClientID, CourseID: courseID},
		Ref:   ref,
		Type:  typ,
	}

	db := tx.WithContext(ctx)
	switch ref.Kind {
	case courseModels.ContextModule:
		var item courseModels.CourseModuleContent
		err := db.Where("id = ? AND course_id = ? AND client_id = ? AND is_deleted = ?", ref.ID, courseID, p.ClientID, false).
			First(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Target{}, apperr.NotFound("Content not found!")
		}
		if err != nil {
			return Target{}, apperr.Wrap(err, "load module content")
		}
		if ContentType(item.ContentType) != typ {
			return Target{}, apperr.Validation("Content type does not match!")
		}
		t.PackageID = item.ContentID
	case courseModels.ContextPrerequisite:
		var pre courseModels.CoursePrerequisite
		err := db.Where("id = ? AND course_id = ? AND client_id = ? AND is_deleted = ?", ref.ID, courseID, p.ClientID, false).
			First(&pre).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Target{}, apperr.NotFound("Prerequisite not found!")
		}
		if err != nil {
			return Target{}, apperr.Wrap(err, "load prerequisite")
		}
		if ContentType(pre.PrerequisiteType) != typ {
			return Target{}, apperr.Validation("Content type does not match!")
		}
		t.PackageID = pre.PrerequisiteID
	default:
		return Target{}, apperr.Validation("Unknown content context!")
	}

	if typ == Assessment {
		return t, nil
	}
	cfg, err := LoadPackageConfig(ctx, tx, p.ClientID, t.PackageID)
	if err != nil {
		return Target{}, err
	}
	t.Config = cfg
	return t, nil
}

// LoadPackageConfig reads the tenant's content package settings.
func LoadPackageConfig(ctx context.Context, tx *gorm.DB, clientID, packageID uint) (courseModels.PackageConfig, error) {
	var pkg courseModels.ContentPackage
	err := tx.WithContext(ctx).
		Where("id = ? AND client_id = ? AND is_deleted = ?", packageID, clientID, false).
		First(&pkg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return courseModels.PackageConfig{}, apperr.NotFound("Content package not found!")
	}
	if err != nil {
		return courseModels.PackageConfig{}, apperr.Wrap(err, "load content package")
	}

	var cfg courseModels.PackageConfig
	if len(pkg.Config) > 0 {
		if err := json.Unmarshal(pkg.Config, &cfg); err != nil {
			return courseModels.PackageConfig{}, apperr.Wrap(err, "decode package config")
		}
	}
	return cfg, nil
}
