package rollup

import (
	"context"
	"time"

	"lms/logger"
	courseModels "lms/models/course"

	"gorm.io/gorm"
)

type rollupKey struct {
	ClientID uint
	UserID   uint
	CourseID uint
}

// ReconcileSince recomputes the rollup of every (tenant, user, course) with
// leaf activity at or after since. Each recompute runs in its own
// transaction so one failure does not stop the sweep. It returns how many
// rollups were rewritten.
func (s *Service) ReconcileSince(ctx context.Context, db *gorm.DB, since time.Time, log *logger.Logger) (int, error) {
	log = logger.OrNop(log)

	tables := []interface{}{
		&courseModels.VideoProgress{},
		&courseModels.AudioProgress{},
		&courseModels.DocumentProgress{},
		&courseModels.ImageProgress{},
		&courseModels.ExternalProgress{},
		&courseModels.InteractiveProgress{},
		&courseModels.ScormProgress{},
		&courseModels.AssessmentProgress{},
		&courseModels.ActivityProgress{},
		&courseModels.PrerequisiteCompletion{},
	}

	seen := map[rollupKey]bool{}
	var keys []rollupKey
	for _, model := range tables {
		var rows []rollupKey
		if err := db.WithContext(ctx).Model(model).
			Distinct("client_id", "user_id", "course_id").
			Where("updated_at >= ?", since).
			Scan(&rows).Error; err != nil {
			return 0, err
		}
		for _, k := range rows {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	done := 0
	for _, k := range keys {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			_, err := s.CalculateCourseProgress(ctx, tx, k.UserID, k.CourseID, k.ClientID)
			return err
		})
		if err != nil {
			log.Warn("rollup reconcile failed",
				"client_id", k.ClientID, "user_id", k.UserID, "course_id", k.CourseID, "error", err)
			continue
		}
		done++
	}
	return done, nil
}
