package progress

import (
	"time"

	courseModels "lms/models/course"

	"gorm.io/gorm"
)

// NewActivityStore tracks survey, feedback and assignment items in one table,
// completed by their submission.
func NewActivityStore(typ ContentType) ProgressStore {
	return &gormStore[courseModels.ActivityProgress, *courseModels.ActivityProgress]{
		typ: typ,
		init: func(row *courseModels.ActivityProgress, _ Target) {
			row.ActivityType = string(typ)
		},
		apply: applyActivity,
		filter: func(db *gorm.DB) *gorm.DB {
			return db.Where("activity_type = ?", string(typ))
		},
	}
}

func applyActivity(row *courseModels.ActivityProgress, _ Target, m Metrics, now time.Time) bool {
	if m.Submitted && row.SubmittedAt == nil {
		row.SubmittedAt = &now
	}
	return row.SubmittedAt != nil
}
