package controllers

import (
	"context"
	"errors"
	"time"

	"lms/apperr"
	"lms/database"
	"lms/logger"
	courseModels "lms/models/course"
	"lms/services/assessment"
	"lms/services/completion"
	"lms/services/progress"
	"lms/services/rollup"
	"lms/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	registry          = progress.NewRegistry()
	rollupService     = rollup.NewService(registry)
	completionService = completion.NewService(registry, rollupService, nil)
	player            = assessment.NewPlayer(nil)
	notifier          *utils.CompletionNotifier
)

// Init wires the services used by the course handlers.
func Init(log *logger.Logger, n *utils.CompletionNotifier) {
	completionService = completion.NewService(registry, rollupService, log)
	player = assessment.NewPlayer(log)
	notifier = n
}

// RollupService is shared with the reconcile scheduler.
func RollupService() *rollup.Service { return rollupService }

func db() *gorm.DB { return database.Database.Db }

func tracker(tx *gorm.DB) *completion.Tracker {
	return completion.NewTracker(tx, registry, completionService, logger.L)
}

// logCascade reports a degraded cascade; the request itself still succeeds.
func logCascade(res *completion.CascadeResult, kv ...interface{}) {
	if res == nil {
		return
	}
	for _, ce := range res.Errors {
		logger.L.Warn("completion cascade step failed",
			append([]interface{}{"event_id", res.EventID, "step", ce.Step, "error", ce.Err}, kv...)...)
	}
}

// notifyCompleted fires the course-completed notification for every course
// the request finished.
func notifyCompleted(ctx context.Context, userID, clientID uint, email string, courseIDs []uint) {
	if !notifier.Enabled() || len(courseIDs) == 0 {
		return
	}
	for _, courseID := range courseIDs {
		var course courseModels.Course
		if err := db().WithContext(ctx).Where("id = ? AND client_id = ?", courseID, clientID).First(&course).Error; err != nil {
			logger.L.Warn("completion notification skipped", "course_id", courseID, "error", err)
			continue
		}

		notifier.NotifyAsync(utils.CourseCompletedEvent{
			EventID:           uuid.NewString(),
			ClientID:          clientID,
			UserID:            userID,
			Email:             email,
			CourseID:          courseID,
			CourseTitle:       course.Title,
			CertificateNumber: certificateNumber(ctx, clientID, userID, courseID),
			CompletedAt:       time.Now().UTC(),
		})
	}
}

// certificateNumber returns the issued certificate number, or "" when there
// is none yet.
func certificateNumber(ctx context.Context, clientID, userID, courseID uint) string {
	var certs []courseModels.Certificate
	err := db().WithContext(ctx).
		Where("client_id = ? AND user_id = ? AND course_id = ?", clientID, userID, courseID).
		Limit(1).Find(&certs).Error
	if err != nil {
		logger.L.Debug("certificate lookup failed", "course_id", courseID, "user_id", userID, "error", err)
		return ""
	}
	if len(certs) == 0 {
		return ""
	}
	return certs[0].CertificateNumber
}

// findCourse loads a live course of the caller's tenant.
func findCourse(ctx context.Context, clientID, courseID uint) (*courseModels.Course, error) {
	var course courseModels.Course
	err := db().WithContext(ctx).
		Where("id = ? AND client_id = ? AND is_deleted = ?", courseID, clientID, false).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Course not found!")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load course")
	}
	return &course, nil
}
