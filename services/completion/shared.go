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

// SharedService fans a completion out to every context that uses the same
// physical package within the tenant, across courses.
type SharedService struct {
	registry *progress.Registry
	rollup   *rollup.Service
	log      *logger.Logger
	now      func() time.Time
}

func NewSharedService(registry *progress.Registry, rollupSvc *rollup.Service, log *logger.Logger) *SharedService {
	return &SharedService{
		registry: registry,
		rollup:   rollupSvc,
		log:      logger.OrNop(log).With("service", "SharedContentCompletion"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// sharedContext is one place a package is attached.
type sharedContext struct {
	Ref      progress.ContextRef
	CourseID uint
	Prereq   *courseModels.CoursePrerequisite
}

func findContexts(ctx context.Context, tx *gorm.DB, clientID, packageID uint, typ progress.ContentType) ([]sharedContext, error) {
	db := tx.WithContext(ctx)

	var items []courseModels.CourseModuleContent
	if err := db.Where("client_id = ? AND content_id = ? AND content_type = ? AND is_deleted = ?", clientID, packageID, string(typ), false).
		Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	var prereqs []courseModels.CoursePrerequisite
	if err := db.Where("client_id = ? AND prerequisite_id = ? AND prerequisite_type = ? AND is_deleted = ?", clientID, packageID, string(typ), false).
		Order("id asc").Find(&prereqs).Error; err != nil {
		return nil, err
	}

	out := make([]sharedContext, 0, len(items)+len(prereqs))
	for _, it := range items {
		out = append(out, sharedContext{Ref: progress.ModuleContext(it.ID), CourseID: it.CourseID})
	}
	for i := range prereqs {
		pre := prereqs[i]
		out = append(out, sharedContext{Ref: progress.PrerequisiteContext(pre.ID), CourseID: pre.CourseID, Prereq: &pre})
	}
	return out, nil
}

// HandleSharedContentCompletion marks sharedContentID complete in every
// context that references it. contextType and prerequisiteID name the context
// that triggered the event; a prerequisite origin is skipped, everything else
// is re-marked, which is a no-op for contexts already complete.
func (s *SharedService) HandleSharedContentCompletion(ctx context.Context, tx *gorm.DB, userID, courseID, sharedContentID, clientID uint, contentType progress.ContentType, contextType string, prerequisiteID *uint) CascadeResult {
	res := newResult()
	res.touchCourse(courseID)

	var contexts []sharedContext
	ok := res.step(tx, "shared_lookup", func(tx *gorm.DB) error {
		var err error
		contexts, err = findContexts(ctx, tx, clientID, sharedContentID, contentType)
		return err
	})
	if !ok {
		return res
	}

	var origin *progress.ContextRef
	if contextType == courseModels.ContextPrerequisite && prerequisiteID != nil {
		ref := progress.PrerequisiteContext(*prerequisiteID)
		origin = &ref
	}
	s.fanOut(ctx, tx, &res, userID, clientID, sharedContentID, contentType, contexts, origin)
	recomputeRollups(ctx, tx, s.rollup, &res, userID, clientID)
	return res
}

func (s *SharedService) fanOut(ctx context.Context, tx *gorm.DB, res *CascadeResult, userID, clientID, packageID uint, typ progress.ContentType, contexts []sharedContext, origin *progress.ContextRef) {
	store, err := s.registry.Store(typ)
	if err != nil {
		res.fail("shared_store", err)
		return
	}

	for _, sc := range contexts {
		if origin != nil && *origin == sc.Ref {
			continue
		}
		sc := sc
		target := progress.Target{
			Scope:     progress.Scope{UserID: userID, ClientID: clientID, CourseID: sc.CourseID},
			Ref:       sc.Ref,
			Type:      typ,
			PackageID: packageID,
		}
		res.step(tx, "shared_mark", func(tx *gorm.DB) error {
			out, err := store.MarkComplete(ctx, tx, target)
			if err != nil {
				return err
			}
			if sc.Prereq != nil {
				marked, err := MarkPrerequisiteComplete(ctx, tx, userID, clientID, *sc.Prereq, s.now())
				if err != nil {
					return err
				}
				if marked {
					res.PrerequisitesMarked = append(res.PrerequisitesMarked, sc.Prereq.ID)
				}
			}
			if out.BecameComplete {
				res.SharedContexts++
			}
			res.touchCourse(sc.CourseID)
			return nil
		})
	}
}
