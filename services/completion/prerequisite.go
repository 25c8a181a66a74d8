package completion

import (
	"context"
	"errors"
	"time"

	courseModels "lms/models/course"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MarkPrerequisiteComplete records the prerequisite as completed for the user.
// It reports false when the prerequisite was already complete.
func MarkPrerequisiteComplete(ctx context.Context, tx *gorm.DB, userID, clientID uint, pre courseModels.CoursePrerequisite, now time.Time) (bool, error) {
	db := tx.WithContext(ctx)

	var row courseModels.PrerequisiteCompletion
	err := db.Where("client_id = ? AND user_id = ? AND course_id = ? AND prerequisite_id = ?",
		clientID, userID, pre.CourseID, pre.ID).First(&row).Error
	switch {
	case err == nil:
		if row.IsCompleted {
			return false, nil
		}
		row.IsCompleted = true
		row.CompletedAt = &now
		return true, db.Save(&row).Error
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	row = courseModels.PrerequisiteCompletion{
		ClientID:         clientID,
		UserID:           userID,
		CourseID:         pre.CourseID,
		PrerequisiteID:   pre.ID,
		PackageID:        pre.PrerequisiteID,
		PrerequisiteType: pre.PrerequisiteType,
		IsCompleted:      true,
		CompletedAt:      &now,
	}
	if err := upsertPrerequisiteCompletion(db, &row, now); err != nil {
		return false, err
	}
	return true, nil
}

// upsertPrerequisiteCompletion inserts row or, when a concurrent request
// created it first, completes the existing one. An existing completed_at is kept.
func upsertPrerequisiteCompletion(db *gorm.DB, row *courseModels.PrerequisiteCompletion, now time.Time) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}, {Name: "user_id"}, {Name: "course_id"}, {Name: "prerequisite_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"is_completed": true,
			"completed_at": gorm.Expr("COALESCE(prerequisite_completions.completed_at, ?)", now),
		}),
	}).Create(row).Error
}
