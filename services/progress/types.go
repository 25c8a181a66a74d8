package progress

import (
	"encoding/json"
	"fmt"
	"strings"

	courseModels "lms/models/course"
)

// ContentType tags every leaf item. It selects the ProgressStore that tracks it.
type ContentType string

const (
	Video       ContentType = courseModels.TypeVideo
	Audio       ContentType = courseModels.TypeAudio
	Document    ContentType = courseModels.TypeDocument
	Image       ContentType = courseModels.TypeImage
	External    ContentType = courseModels.TypeExternal
	Interactive ContentType = courseModels.TypeInteractive
	Scorm       ContentType = courseModels.TypeScorm
	Assessment  ContentType = courseModels.TypeAssessment
	Survey      ContentType = courseModels.TypeSurvey
	Feedback    ContentType = courseModels.TypeFeedback
	Assignment  ContentType = courseModels.TypeAssignment
)

var allTypes = []ContentType{Video, Audio, Document, Image, External, Interactive, Scorm, Assessment, Survey, Feedback, Assignment}

// AllTypes returns every known content type.
func AllTypes() []ContentType {
	out := make([]ContentType, len(allTypes))
	copy(out, allTypes)
	return out
}

func ParseContentType(s string) (ContentType, error) {
	t := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown content type %q", s)
	}
	return t, nil
}

func (t ContentType) Valid() bool {
	for _, k := range allTypes {
		if k == t {
			return true
		}
	}
	return false
}

// IsActivity reports types completed by a single submission.
func (t ContentType) IsActivity() bool {
	return t == Survey || t == Feedback || t == Assignment
}

// ContextRef points at the place a package is used: a module item
// (course_module_contents.id) or a prerequisite (course_prerequisites.id).
type ContextRef struct {
	Kind string
	ID   uint
}

func ModuleContext(contentID uint) ContextRef {
	return ContextRef{Kind: courseModels.ContextModule, ID: contentID}
}

func PrerequisiteContext(prerequisiteID uint) ContextRef {
	return ContextRef{Kind: courseModels.ContextPrerequisite, ID: prerequisiteID}
}

func (r ContextRef) Key() string { return courseModels.ContextKeyFor(r.Kind, r.ID) }

func (r ContextRef) IsPrerequisite() bool { return r.Kind == courseModels.ContextPrerequisite }

// Scope is the (user, tenant, course) triple every progress query filters on.
type Scope struct {
	UserID   uint
	ClientID uint
	CourseID uint
}

// Target is a resolved, tenant-checked context a store writes to.
type Target struct {
	Scope
	Ref       ContextRef
	Type      ContentType
	PackageID uint
	Config    courseModels.PackageConfig
}

// Metrics carries the type-specific values a viewer reports. Stores read the
// fields that apply to them and ignore the rest.
type Metrics struct {
	TimeSpent int  `json:"time_spent"` // seconds since the last report
	Started   bool `json:"started"`

	// video / audio
	WatchedPercentage  *float64 `json:"watched_percentage"`
	ListenedPercentage *float64 `json:"listened_percentage"`
	CurrentPosition    *int     `json:"current_position"`
	Duration           *int     `json:"duration"`

	// document
	CurrentPage      *int     `json:"current_page"`
	TotalPages       *int     `json:"total_pages"`
	PagesViewed      []int    `json:"pages_viewed"`
	ViewedPercentage *float64 `json:"viewed_percentage"`

	// external
	Visit bool `json:"visit"`

	// interactive / scorm
	CompletionPercentage *float64        `json:"completion_percentage"`
	IsCompleted          *bool           `json:"is_completed"`
	Score                *float64        `json:"score"`
	SuspendData          json.RawMessage `json:"suspend_data"`
	LessonStatus         *string         `json:"lesson_status"`
	LessonLocation       *string         `json:"lesson_location"`

	// survey / feedback / assignment
	Submitted bool `json:"submitted"`
}

// Row is any per-type progress row.
type Row interface {
	Base() *courseModels.ProgressBase
}

// Outcome of a write. BecameComplete is true only on the write that first
// flipped the row to completed.
type Outcome struct {
	Row            Row
	BecameComplete bool
}
