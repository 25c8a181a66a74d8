// Package rollup recomputes course-level progress from leaf completion state.
//
// CourseProgress is a cache. Every call re-reads the leaf rows and rewrites
// the aggregate; nothing is maintained incrementally, so a missed or failed
// recompute is repaired by the next one (the rollup is eventually consistent
// with the leaves).
package rollup

import (
	"context"
	"errors"
	"math"
	"time"

	"lms/apperr"
	courseModels "lms/models/course"
	"lms/services/progress"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ModuleBreakdown is the per-module share of required items.
type ModuleBreakdown struct {
	ModuleID          uint    `json:"module_id"`
	ModuleName        string  `json:"module_name"`
	TotalContents     int     `json:"total_contents"`
	CompletedContents int     `json:"completed_contents"`
	Progress          float64 `json:"progress"`
}

// Summary is the result of one recompute.
type Summary struct {
	Progress      *courseModels.CourseProgress `json:"progress"`
	Modules       []ModuleBreakdown            `json:"modules"`
	Prerequisites struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
	} `json:"prerequisites"`
	JustCompleted bool `json:"-"`
}

type Service struct {
	registry *progress.Registry
	now      func() time.Time
}

func NewService(registry *progress.Registry) *Service {
	return &Service{registry: registry, now: func() time.Time { return time.Now().UTC() }}
}

type requiredItem struct {
	courseModels.CourseModuleContent
	ModuleTitle string
}

// Percentage is round(completed/total*100), 0 when there is nothing to complete.
func Percentage(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed) / float64(total) * 100)
}

// StatusFor maps the item counts onto the course status. It works on counts,
// not the rounded percentage, so one open item out of many never reads as done.
func StatusFor(completed, total int) string {
	switch {
	case total > 0 && completed >= total:
		return courseModels.StatusCompleted
	case completed > 0:
		return courseModels.StatusInProgress
	default:
		return courseModels.StatusNotStarted
	}
}

// CalculateCourseProgress recomputes and persists the user's course rollup.
func (s *Service) CalculateCourseProgress(ctx context.Context, tx *gorm.DB, userID, courseID, clientID uint) (*Summary, error) {
	db := tx.WithContext(ctx)
	scope := progress.Scope{UserID: userID, ClientID: clientID, CourseID: courseID}

	var modules []courseModels.Module
	if err := db.Where("course_id = ? AND client_id = ? AND is_deleted = ?", courseID, clientID, false).
		Order("sort_order asc, id asc").Find(&modules).Error; err != nil {
		return nil, apperr.Wrap(err, "load modules")
	}

	var items []requiredItem
	if err := db.Table("course_module_contents AS cmc").
		Select("cmc.*, m.title AS module_title").
		Joins("JOIN modules m ON m.id = cmc.module_id AND m.client_id = cmc.client_id AND m.is_deleted = ?", false).
		Where("cmc.course_id = ? AND cmc.client_id = ? AND cmc.is_deleted = ? AND cmc.is_required = ?", courseID, clientID, false, true).
		Order("m.sort_order asc, m.id asc, cmc.sort_order asc, cmc.id asc").
		Scan(&items).Error; err != nil {
		return nil, apperr.Wrap(err, "load module contents")
	}

	completedByType := map[progress.ContentType]map[uint]bool{}
	for _, it := range items {
		typ := progress.ContentType(it.ContentType)
		if _, ok := completedByType[typ]; ok {
			continue
		}
		store, err := s.registry.Store(typ)
		if err != nil {
			return nil, apperr.Wrap(err, "select store")
		}
		set, err := store.CompletedContexts(ctx, tx, scope, courseModels.ContextModule)
		if err != nil {
			return nil, apperr.Wrap(err, "load completed contexts")
		}
		completedByType[typ] = set
	}

	var prereqs []courseModels.CoursePrerequisite
	if err := db.Where("course_id = ? AND client_id = ? AND is_deleted = ? AND is_required = ?", courseID, clientID, false, true).
		Find(&prereqs).Error; err != nil {
		return nil, apperr.Wrap(err, "load prerequisites")
	}
	var donePrereqIDs []uint
	if err := db.Model(&courseModels.PrerequisiteCompletion{}).
		Where("user_id = ? AND course_id = ? AND client_id = ? AND is_completed = ?", userID, courseID, clientID, true).
		Pluck("prerequisite_id", &donePrereqIDs).Error; err != nil {
		return nil, apperr.Wrap(err, "load prerequisite completions")
	}
	donePrereq := make(map[uint]bool, len(donePrereqIDs))
	for _, id := range donePrereqIDs {
		donePrereq[id] = true
	}
	// a completed prerequisite-context leaf counts even when the cascade
	// never recorded the PrerequisiteCompletion row
	leafPrereq := map[progress.ContentType]map[uint]bool{}
	for _, p := range prereqs {
		typ := progress.ContentType(p.PrerequisiteType)
		if _, ok := leafPrereq[typ]; ok {
			continue
		}
		store, err := s.registry.Store(typ)
		if err != nil {
			return nil, apperr.Wrap(err, "select store")
		}
		set, err := store.CompletedContexts(ctx, tx, scope, courseModels.ContextPrerequisite)
		if err != nil {
			return nil, apperr.Wrap(err, "load completed prerequisite contexts")
		}
		leafPrereq[typ] = set
	}

	summary := &Summary{}
	breakdown := make(map[uint]*ModuleBreakdown, len(modules))
	for _, m := range modules {
		summary.Modules = append(summary.Modules, ModuleBreakdown{ModuleID: m.ID, ModuleName: m.Title})
	}
	for i := range summary.Modules {
		breakdown[summary.Modules[i].ModuleID] = &summary.Modules[i]
	}

	total, completed := 0, 0
	var resume *requiredItem
	for i := range items {
		it := &items[i]
		done := completedByType[progress.ContentType(it.ContentType)][it.ID]
		total++
		if b := breakdown[it.ModuleID]; b != nil {
			b.TotalContents++
			if done {
				b.CompletedContents++
			}
		}
		if done {
			completed++
		} else if resume == nil {
			resume = it
		}
	}
	for i := range summary.Modules {
		b := &summary.Modules[i]
		b.Progress = Percentage(b.CompletedContents, b.TotalContents)
	}
	for _, p := range prereqs {
		summary.Prerequisites.Total++
		total++
		if donePrereq[p.ID] || leafPrereq[progress.ContentType(p.PrerequisiteType)][p.ID] {
			summary.Prerequisites.Completed++
			completed++
		}
	}
	if resume == nil && len(items) > 0 {
		resume = &items[len(items)-1]
	}

	cp, err := s.loadOrCreate(ctx, tx, scope)
	if err != nil {
		return nil, err
	}
	prevStatus := cp.Status
	now := s.now()

	cp.TotalItems = total
	cp.CompletedItems = completed
	cp.CompletionPercentage = Percentage(completed, total)
	cp.Status = StatusFor(completed, total)
	cp.CurrentModuleID, cp.CurrentContentID = nil, nil
	if resume != nil {
		mid, cid := resume.ModuleID, resume.ID
		cp.CurrentModuleID, cp.CurrentContentID = &mid, &cid
	}
	if cp.Status == courseModels.StatusCompleted {
		if cp.CompletedAt == nil {
			cp.CompletedAt = &now
		}
	} else {
		cp.CompletedAt = nil
	}
	if err := db.Save(cp).Error; err != nil {
		return nil, apperr.Wrap(err, "save course progress")
	}

	summary.Progress = cp
	summary.JustCompleted = cp.Status == courseModels.StatusCompleted && prevStatus != courseModels.StatusCompleted

	if err := s.syncEnrollment(ctx, tx, cp); err != nil {
		return nil, err
	}
	if cp.Status == courseModels.StatusCompleted {
		if err := s.issueCertificate(ctx, tx, cp); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

func (s *Service) loadOrCreate(ctx context.Context, tx *gorm.DB, scope progress.Scope) (*courseModels.CourseProgress, error) {
	db := tx.WithContext(ctx)
	where := func() *gorm.DB {
		return db.Where("client_id = ? AND user_id = ? AND course_id = ?", scope.ClientID, scope.UserID, scope.CourseID)
	}

	var cp courseModels.CourseProgress
	err := where().First(&cp).Error
	if err == nil {
		return &cp, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(err, "load course progress")
	}

	fresh := courseModels.CourseProgress{
		ClientID: scope.ClientID,
		UserID:   scope.UserID,
		CourseID: scope.CourseID,
		Status:   courseModels.StatusNotStarted,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}, {Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&fresh).Error; err != nil {
		return nil, apperr.Wrap(err, "create course progress")
	}
	if err := where().First(&cp).Error; err != nil {
		return nil, apperr.Wrap(err, "reload course progress")
	}
	return &cp, nil
}

// GetCourseProgress returns the cached rollup, or a zero one when none was computed yet.
func (s *Service) GetCourseProgress(ctx context.Context, tx *gorm.DB, userID, courseID, clientID uint) (*courseModels.CourseProgress, error) {
	var cp courseModels.CourseProgress
	err := tx.WithContext(ctx).
		Where("client_id = ? AND user_id = ? AND course_id = ?", clientID, userID, courseID).
		First(&cp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &courseModels.CourseProgress{
			ClientID: clientID,
			UserID:   userID,
			CourseID: courseID,
			Status:   courseModels.StatusNotStarted,
		}, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load course progress")
	}
	return &cp, nil
}

// syncEnrollment mirrors the rollup onto the enrollment, when the user has one.
func (s *Service) syncEnrollment(ctx context.Context, tx *gorm.DB, cp *courseModels.CourseProgress) error {
	var enrollment courseModels.Enrollment
	err := tx.WithContext(ctx).
		Where("client_id = ? AND user_id = ? AND course_id = ?", cp.ClientID, cp.UserID, cp.CourseID).
		First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Wrap(err, "load enrollment")
	}

	enrollment.CompletedContents = cp.CompletedItems
	enrollment.TotalContents = cp.TotalItems
	enrollment.Progress = cp.CompletionPercentage
	switch cp.Status {
	case courseModels.StatusCompleted:
		enrollment.Status = courseModels.EnrollmentCompleted
		if enrollment.CompletedAt == nil {
			enrollment.CompletedAt = cp.CompletedAt
		}
	case courseModels.StatusInProgress:
		enrollment.Status = courseModels.EnrollmentInProgress
	default:
		enrollment.Status = courseModels.EnrollmentEnrolled
	}
	if err := tx.WithContext(ctx).Save(&enrollment).Error; err != nil {
		return apperr.Wrap(err, "save enrollment")
	}
	return nil
}

// issueCertificate creates the certificate once; later completions are no-ops.
func (s *Service) issueCertificate(ctx context.Context, tx *gorm.DB, cp *courseModels.CourseProgress) error {
	cert := courseModels.Certificate{
		ClientID:          cp.ClientID,
		UserID:            cp.UserID,
		CourseID:          cp.CourseID,
		CertificateNumber: uuid.NewString(),
		IssuedAt:          s.now(),
	}
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}, {Name: "user_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(&cert).Error
	if err != nil {
		return apperr.Wrap(err, "issue certificate")
	}
	return nil
}
