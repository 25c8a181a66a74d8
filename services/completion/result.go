package completion

import (
	"lms/apperr"
	courseModels "lms/models/course"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CascadeResult reports what a best-effort completion cascade did. Failed
// steps are collected in Errors and never abort the caller's primary write;
// callers log Err() and carry on.
type CascadeResult struct {
	EventID             string                                `json:"event_id"`
	PrerequisitesMarked []uint                                `json:"prerequisites_marked"`
	SharedContexts      int                                   `json:"shared_contexts"`
	AffectedCourses     []uint                                `json:"affected_courses"`
	CompletedCourses    []uint                                `json:"completed_courses"`
	Rollups             map[uint]*courseModels.CourseProgress `json:"-"`
	Errors              []apperr.CascadeError                 `json:"-"`
}

func newResult() CascadeResult {
	return CascadeResult{
		EventID: uuid.NewString(),
		Rollups: map[uint]*courseModels.CourseProgress{},
	}
}

// Err joins the failed steps, nil when every step succeeded.
func (r CascadeResult) Err() error {
	return apperr.JoinCascade(r.Errors)
}

func (r *CascadeResult) fail(step string, err error) {
	r.Errors = append(r.Errors, apperr.CascadeError{Step: step, Err: err})
}

func (r *CascadeResult) touchCourse(courseID uint) {
	for _, id := range r.AffectedCourses {
		if id == courseID {
			return
		}
	}
	r.AffectedCourses = append(r.AffectedCourses, courseID)
}

func (r *CascadeResult) merge(o CascadeResult) {
	r.PrerequisitesMarked = append(r.PrerequisitesMarked, o.PrerequisitesMarked...)
	r.SharedContexts += o.SharedContexts
	for _, id := range o.AffectedCourses {
		r.touchCourse(id)
	}
	r.CompletedCourses = append(r.CompletedCourses, o.CompletedCourses...)
	for k, v := range o.Rollups {
		r.Rollups[k] = v
	}
	r.Errors = append(r.Errors, o.Errors...)
}

// step runs fn under a savepoint. A failure rolls back only fn's writes and is
// recorded on the result.
func (r *CascadeResult) step(tx *gorm.DB, name string, fn func(tx *gorm.DB) error) bool {
	if err := tx.Transaction(fn); err != nil {
		r.fail(name, err)
		return false
	}
	return true
}
