package progress

import (
	"context"
	"errors"
	"time"

	"lms/apperr"
	courseModels "lms/models/course"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressStore is the capability every content type implements.
type ProgressStore interface {
	Type() ContentType
	GetOrCreate(ctx context.Context, tx *gorm.DB, t Target) (Row, error)
	Get(ctx context.Context, tx *gorm.DB, t Target) (Row, error)
	Update(ctx context.Context, tx *gorm.DB, t Target, m Metrics) (Outcome, error)
	MarkComplete(ctx context.Context, tx *gorm.DB, t Target) (Outcome, error)
	// CompletedContexts returns the ids of completed contexts of one kind.
	CompletedContexts(ctx context.Context, tx *gorm.DB, s Scope, kind string) (map[uint]bool, error)
}

type rowPtr[T any] interface {
	*T
	Row
}

// applyFunc folds metrics into the row and reports whether the type's
// completion criteria are now met.
type applyFunc[P any] func(row P, t Target, m Metrics, now time.Time) bool

// gormStore is the shared gorm implementation; the type-specific parts are
// the init and apply hooks.
type gormStore[T any, P rowPtr[T]] struct {
	typ    ContentType
	init   func(row P, t Target)
	apply  applyFunc[P]
	filter func(db *gorm.DB) *gorm.DB
	now    func() time.Time
}

func (s *gormStore[T, P]) Type() ContentType { return s.typ }

func (s *gormStore[T, P]) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

func (s *gormStore[T, P]) load(ctx context.Context, tx *gorm.DB, t Target) (P, error) {
	var row T
	p := P(&row)
	err := tx.WithContext(ctx).
		Where("client_id = ? AND user_id = ? AND course_id = ? AND context_key = ?",
			t.ClientID, t.UserID, t.CourseID, t.Ref.Key()).
		First(p).Error
	if err != nil {
		return nil, err
	}
	b := p.Base()
	if b.UserID != t.UserID || b.ClientID != t.ClientID {
		return nil, apperr.Unauthorized("Unauthorized")
	}
	return p, nil
}

func (s *gormStore[T, P]) Get(ctx context.Context, tx *gorm.DB, t Target) (Row, error) {
	p, err := s.load(ctx, tx, t)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Progress not found!")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load progress")
	}
	return p, nil
}

func (s *gormStore[T, P]) GetOrCreate(ctx context.Context, tx *gorm.DB, t Target) (Row, error) {
	p, err := s.getOrCreate(ctx, tx, t)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *gormStore[T, P]) getOrCreate(ctx context.Context, tx *gorm.DB, t Target) (P, error) {
	p, err := s.load(ctx, tx, t)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(err, "load progress")
	}

	var fresh T
	np := P(&fresh)
	b := np.Base()
	b.ClientID = t.ClientID
	b.UserID = t.UserID
	b.CourseID = t.CourseID
	b.PackageID = t.PackageID
	ctxID := t.Ref.ID
	if t.Ref.IsPrerequisite() {
		b.PrerequisiteID = &ctxID
	} else {
		b.ContentID = &ctxID
	}
	b.Status = courseModels.StatusNotStarted
	if s.init != nil {
		s.init(np, t)
	}

	// A concurrent request may have created the row; the unique context index
	// turns that into a no-op and the reload below picks up the winner.
	if err := tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}, {Name: "user_id"}, {Name: "course_id"}, {Name: "context_key"}},
			DoNothing: true,
		}).
		Create(np).Error; err != nil {
		return nil, apperr.Wrap(err, "create progress")
	}

	p, err = s.load(ctx, tx, t)
	if err != nil {
		return nil, apperr.Wrap(err, "reload progress")
	}
	return p, nil
}

func (s *gormStore[T, P]) Update(ctx context.Context, tx *gorm.DB, t Target, m Metrics) (Outcome, error) {
	p, err := s.getOrCreate(ctx, tx, t)
	if err != nil {
		return Outcome{}, err
	}
	now := s.clock()
	b := p.Base()
	b.Touch(now)
	if m.TimeSpent > 0 {
		b.TimeSpent += m.TimeSpent
	}

	became := false
	if s.apply != nil && s.apply(p, t, m, now) {
		became = b.MarkCompleted(now)
	}
	if err := tx.WithContext(ctx).Save(p).Error; err != nil {
		return Outcome{}, apperr.Wrap(err, "save progress")
	}
	return Outcome{Row: p, BecameComplete: became}, nil
}

func (s *gormStore[T, P]) MarkComplete(ctx context.Context, tx *gorm.DB, t Target) (Outcome, error) {
	p, err := s.getOrCreate(ctx, tx, t)
	if err != nil {
		return Outcome{}, err
	}
	b := p.Base()
	if b.IsCompleted {
		return Outcome{Row: p}, nil
	}
	now := s.clock()
	b.Touch(now)
	b.MarkCompleted(now)
	if err := tx.WithContext(ctx).Save(p).Error; err != nil {
		return Outcome{}, apperr.Wrap(err, "save progress")
	}
	return Outcome{Row: p, BecameComplete: true}, nil
}

func (s *gormStore[T, P]) CompletedContexts(ctx context.Context, tx *gorm.DB, sc Scope, kind string) (map[uint]bool, error) {
	col := "content_id"
	if kind == courseModels.ContextPrerequisite {
		col = "prerequisite_id"
	}

	q := tx.WithContext(ctx).Model(P(new(T))).
		Where("client_id = ? AND user_id = ? AND course_id = ? AND is_completed = ?",
			sc.ClientID, sc.UserID, sc.CourseID, true).
		Where(col + " IS NOT NULL")
	if s.filter != nil {
		q = s.filter(q)
	}

	var ids []uint
	if err := q.Pluck(col, &ids).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// threshold picks the package setting, then the configured default, then 100.
func threshold(pkg, def float64) float64 {
	if pkg > 0 {
		return pkg
	}
	if def > 0 {
		return def
	}
	return 100
}
