// Package completion reacts to a leaf item becoming complete: prerequisite
// marking, shared-content fan-out and course rollup recompute. All of it is
// secondary to the write that completed the leaf and runs best-effort.
package completion

import (
	"context"
	"time"

	"lms/logger"
	courseModels "lms/models/course"
	"lms/services/progress"
	"lms/services/rollup"

	"gorm.io/gorm"
)

// Event is one "leaf just became complete" notification.
type Event struct {
	UserID    uint
	CourseID  uint
	ClientID  uint
	PackageID uint
	Type      progress.ContentType
	// Origin is the context whose write completed, when known.
	Origin *progress.ContextRef
}

type Service struct {
	registry *progress.Registry
	rollup   *rollup.Service
	shared   *SharedService
	log      *logger.Logger
	now      func() time.Time
}

func NewService(registry *progress.Registry, rollupSvc *rollup.Service, log *logger.Logger) *Service {
	log = logger.OrNop(log)
	return &Service{
		registry: registry,
		rollup:   rollupSvc,
		shared:   NewSharedService(registry, rollupSvc, log),
		log:      log.With("service", "CompletionTracking"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HandleContentCompletion is the entry point used when only the package is known.
func (s *Service) HandleContentCompletion(ctx context.Context, tx *gorm.DB, userID, courseID, contentID uint, contentType progress.ContentType, clientID uint) CascadeResult {
	return s.Handle(ctx, tx, Event{
		UserID:    userID,
		CourseID:  courseID,
		ClientID:  clientID,
		PackageID: contentID,
		Type:      contentType,
	})
}

// Handle runs the cascade for ev. It is idempotent: replaying an event leaves
// prerequisite, shared and rollup state exactly as one delivery did.
func (s *Service) Handle(ctx context.Context, tx *gorm.DB, ev Event) CascadeResult {
	res := newResult()
	res.touchCourse(ev.CourseID)
	log := s.log.With(
		"event_id", res.EventID,
		"client_id", ev.ClientID,
		"user_id", ev.UserID,
		"course_id", ev.CourseID,
		"package_id", ev.PackageID,
		"content_type", string(ev.Type),
	)

	// prerequisite membership in this course; a failed lookup means "not a prerequisite"
	var prereqs []courseModels.CoursePrerequisite
	if !res.step(tx, "prerequisite_lookup", func(tx *gorm.DB) error {
		return tx.WithContext(ctx).
			Where("course_id = ? AND client_id = ? AND prerequisite_id = ? AND prerequisite_type = ? AND is_deleted = ?",
				ev.CourseID, ev.ClientID, ev.PackageID, string(ev.Type), false).
			Find(&prereqs).Error
	}) {
		prereqs = nil
	}
	for _, pre := range prereqs {
		pre := pre
		res.step(tx, "prerequisite_mark", func(tx *gorm.DB) error {
			marked, err := MarkPrerequisiteComplete(ctx, tx, ev.UserID, ev.ClientID, pre, s.now())
			if err != nil {
				return err
			}
			if marked {
				res.PrerequisitesMarked = append(res.PrerequisitesMarked, pre.ID)
			}
			return nil
		})
	}

	// module placement needs no write here: the rollup reads the leaf row directly
	var moduleItems int64
	res.step(tx, "module_lookup", func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Model(&courseModels.CourseModuleContent{}).
			Where("course_id = ? AND client_id = ? AND content_id = ? AND content_type = ? AND is_deleted = ?",
				ev.CourseID, ev.ClientID, ev.PackageID, string(ev.Type), false).
			Count(&moduleItems).Error
	})

	// shared fan-out; a failed lookup means "no shared contexts"
	var contexts []sharedContext
	if !res.step(tx, "shared_lookup", func(tx *gorm.DB) error {
		var err error
		contexts, err = findContexts(ctx, tx, ev.ClientID, ev.PackageID, ev.Type)
		return err
	}) {
		contexts = nil
	}
	if len(contexts) > 1 {
		shared := newResult()
		s.shared.fanOut(ctx, tx, &shared, ev.UserID, ev.ClientID, ev.PackageID, ev.Type, contexts, ev.Origin)
		res.merge(shared)
	}

	log.Debug("content completion",
		"prerequisite_contexts", len(prereqs),
		"module_items", moduleItems,
		"contexts", len(contexts))

	recomputeRollups(ctx, tx, s.rollup, &res, ev.UserID, ev.ClientID)

	if err := res.Err(); err != nil {
		log.Warn("completion cascade degraded", "error", err)
	}
	return res
}

// recomputeRollups rewrites the rollup of every course the cascade touched.
func recomputeRollups(ctx context.Context, tx *gorm.DB, svc *rollup.Service, res *CascadeResult, userID, clientID uint) {
	if svc == nil {
		return
	}
	for _, courseID := range res.AffectedCourses {
		courseID := courseID
		res.step(tx, "rollup", func(tx *gorm.DB) error {
			sum, err := svc.CalculateCourseProgress(ctx, tx, userID, courseID, clientID)
			if err != nil {
				return err
			}
			res.Rollups[courseID] = sum.Progress
			if sum.JustCompleted {
				res.CompletedCourses = append(res.CompletedCourses, courseID)
			}
			return nil
		})
	}
}
