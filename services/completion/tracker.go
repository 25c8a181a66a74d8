package completion

import (
	"context"

	"lms/apperr"
	"lms/auth"
	"lms/logger"
	courseModels "lms/models/course"
	"lms/services/progress"

	"gorm.io/gorm"
)

// Tracker is the write path for learner progress. The leaf write and its
// cascade share one transaction; cascade steps run under savepoints so a
// failed step never undoes the leaf write.
type Tracker struct {
	db         *gorm.DB
	registry   *progress.Registry
	completion *Service
	log        *logger.Logger
}

func NewTracker(db *gorm.DB, registry *progress.Registry, svc *Service, log *logger.Logger) *Tracker {
	return &Tracker{
		db:         db,
		registry:   registry,
		completion: svc,
		log:        logger.OrNop(log).With("service", "ProgressTracker"),
	}
}

// Request addresses one context of one content type for the calling user.
type Request struct {
	Principal auth.Principal
	Type      progress.ContentType
	CourseID  uint
	Ref       progress.ContextRef
	Metrics   progress.Metrics
}

type TrackResult struct {
	Progress       progress.Row   `json:"progress"`
	BecameComplete bool           `json:"became_complete"`
	Cascade        *CascadeResult `json:"cascade,omitempty"`
}

func (t *Tracker) resolve(ctx context.Context, tx *gorm.DB, req Request) (progress.Target, progress.ProgressStore, error) {
	store, err := t.registry.Store(req.Type)
	if err != nil {
		return progress.Target{}, nil, apperr.Validation("Invalid content type!")
	}
	target, err := progress.ResolveTarget(ctx, tx, req.Principal, req.Type, req.CourseID, req.Ref)
	if err != nil {
		return progress.Target{}, nil, err
	}
	return target, store, nil
}

// Get returns the caller's progress row for the context, creating a
// not_started row on first access.
func (t *Tracker) Get(ctx context.Context, req Request) (progress.Row, error) {
	var row progress.Row
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, store, err := t.resolve(ctx, tx, req)
		if err != nil {
			return err
		}
		row, err = store.GetOrCreate(ctx, tx, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Update folds reported metrics into the row and cascades when the row
// becomes complete.
func (t *Tracker) Update(ctx context.Context, req Request) (*TrackResult, error) {
	return t.write(ctx, req, func(tx *gorm.DB, store progress.ProgressStore, target progress.Target) (progress.Outcome, error) {
		return store.Update(ctx, tx, target, req.Metrics)
	})
}

// MarkComplete forces the row complete. Repeating it is a no-op.
func (t *Tracker) MarkComplete(ctx context.Context, req Request) (*TrackResult, error) {
	if req.Type == progress.Assessment {
		return nil, apperr.Validation("Assessments are completed by submitting an attempt!")
	}
	return t.write(ctx, req, func(tx *gorm.DB, store progress.ProgressStore, target progress.Target) (progress.Outcome, error) {
		return store.MarkComplete(ctx, tx, target)
	})
}

func (t *Tracker) write(ctx context.Context, req Request, fn func(tx *gorm.DB, store progress.ProgressStore, target progress.Target) (progress.Outcome, error)) (*TrackResult, error) {
	out := &TrackResult{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, store, err := t.resolve(ctx, tx, req)
		if err != nil {
			return err
		}
		res, err := fn(tx, store, target)
		if err != nil {
			return err
		}
		out.Progress = res.Row
		out.BecameComplete = res.BecameComplete
		if res.BecameComplete {
			out.Cascade = t.cascade(ctx, tx, target)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Tracker) cascade(ctx context.Context, tx *gorm.DB, target progress.Target) *CascadeResult {
	origin := target.Ref
	res := t.completion.Handle(ctx, tx, Event{
		UserID:    target.UserID,
		CourseID:  target.CourseID,
		ClientID:  target.ClientID,
		PackageID: target.PackageID,
		Type:      target.Type,
		Origin:    &origin,
	})
	return &res
}

// AttemptRecord is a submitted attempt plus the completion decision the
// assessment policy made for it.
type AttemptRecord struct {
	Attempt       *courseModels.AssessmentAttempt
	AttemptsUsed  int
	CompletionDue bool
}

// RecordAssessmentAttempt folds a submitted attempt into the context's
// assessment progress and completes the context when the policy says so.
func (t *Tracker) RecordAssessmentAttempt(ctx context.Context, p auth.Principal, rec AttemptRecord) (*TrackResult, error) {
	a := rec.Attempt
	if a == nil {
		return nil, apperr.Validation("Attempt is required!")
	}
	var ref progress.ContextRef
	switch {
	case a.PrerequisiteID != nil:
		ref = progress.PrerequisiteContext(*a.PrerequisiteID)
	case a.ContentID != nil:
		ref = progress.ModuleContext(*a.ContentID)
	default:
		// standalone attempt, nothing to track
		return &TrackResult{}, nil
	}

	store := t.registry.Assessment()
	out := &TrackResult{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := progress.ResolveTarget(ctx, tx, p, progress.Assessment, a.CourseID, ref)
		if err != nil {
			return err
		}
		if target.PackageID != a.AssessmentID {
			return apperr.Validation("Attempt does not belong to this content!")
		}
		row, err := store.RecordAttempt(ctx, tx, target, a, rec.AttemptsUsed)
		if err != nil {
			return err
		}
		out.Progress = row
		if !rec.CompletionDue {
			return nil
		}
		res, err := store.MarkComplete(ctx, tx, target)
		if err != nil {
			return err
		}
		out.Progress = res.Row
		out.BecameComplete = res.BecameComplete
		if res.BecameComplete {
			out.Cascade = t.cascade(ctx, tx, target)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.log.Debug("assessment attempt recorded",
		"attempt_id", a.ID, "attempts_used", rec.AttemptsUsed, "completed", out.BecameComplete)
	return out, nil
}
