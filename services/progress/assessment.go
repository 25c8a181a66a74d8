package progress

import (
	"context"

	"lms/apperr"
	courseModels "lms/models/course"

	"gorm.io/gorm"
)

// AssessmentStore never completes on Update; completion is applied by the
// caller's policy through MarkComplete once an attempt is submitted.
type AssessmentStore struct {
	*gormStore[courseModels.AssessmentProgress, *courseModels.AssessmentProgress]
}

func NewAssessmentStore() *AssessmentStore {
	return &AssessmentStore{
		gormStore: &gormStore[courseModels.AssessmentProgress, *courseModels.AssessmentProgress]{typ: Assessment},
	}
}

// RecordAttempt folds a submitted attempt into the context's progress row.
func (s *AssessmentStore) RecordAttempt(ctx context.Context, tx *gorm.DB, t Target, attempt *courseModels.AssessmentAttempt, attemptsUsed int) (*courseModels.AssessmentProgress, error) {
	row, err := s.getOrCreate(ctx, tx, t)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	row.Touch(now)
	row.AttemptsUsed = attemptsUsed
	if attempt.Percentage > row.BestPercentage {
		row.BestPercentage = attempt.Percentage
	}
	if attempt.Passed {
		row.Passed = true
	}
	id := attempt.ID
	row.LastAttemptID = &id
	if err := tx.WithContext(ctx).Save(row).Error; err != nil {
		return nil, apperr.Wrap(err, "save assessment progress")
	}
	return row, nil
}
