package course

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Progress statuses
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Context kinds of a progress row
const (
	ContextModule       = "module"
	ContextPrerequisite = "prerequisite"
)

var ErrProgressContext = errors.New("progress row needs exactly one of content_id or prerequisite_id")

// ProgressBase is embedded by every per-type progress row. A row belongs to one
// context: a module item (ContentID -> course_module_contents.id) or a
// prerequisite (PrerequisiteID -> course_prerequisites.id), never both.
type ProgressBase struct {
	ID             uint       `json:"id" gorm:"primarykey"`
	ClientID       uint       `json:"client_id" gorm:"not null"`
	UserID         uint       `json:"user_id" gorm:"index;not null"`
	CourseID       uint       `json:"course_id" gorm:"not null"`
	PackageID      uint       `json:"package_id" gorm:"index;not null"`
	ContentID      *uint      `json:"content_id"`
	PrerequisiteID *uint      `json:"prerequisite_id"`
	ContextKey     string     `json:"-" gorm:"size:64;not null"`
	Status         string     `json:"status" gorm:"size:16;default:'not_started'"`
	IsCompleted    bool       `json:"is_completed" gorm:"default:false"`
	CompletedAt    *time.Time `json:"completed_at"`
	TimeSpent      int        `json:"time_spent" gorm:"default:0"` // seconds
	LastAccessedAt *time.Time `json:"last_accessed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ContextKeyFor builds the unique context discriminator stored on progress rows.
func ContextKeyFor(kind string, id uint) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func (p *ProgressBase) Base() *ProgressBase { return p }

// ContextKind reports which context the row belongs to.
func (p *ProgressBase) ContextKind() string {
	if p.PrerequisiteID != nil {
		return ContextPrerequisite
	}
	return ContextModule
}

// ContextID is the course_module_contents or course_prerequisites id.
func (p *ProgressBase) ContextID() uint {
	if p.PrerequisiteID != nil {
		return *p.PrerequisiteID
	}
	if p.ContentID != nil {
		return *p.ContentID
	}
	return 0
}

// MarkCompleted flips the row to completed; it never resets an earlier completion time.
func (p *ProgressBase) MarkCompleted(at time.Time) bool {
	if p.IsCompleted {
		return false
	}
	p.IsCompleted = true
	p.Status = StatusCompleted
	p.CompletedAt = &at
	return true
}

// Touch records an interaction on a not yet completed row.
func (p *ProgressBase) Touch(at time.Time) {
	p.LastAccessedAt = &at
	if !p.IsCompleted && p.Status == StatusNotStarted {
		p.Status = StatusInProgress
	}
}

func (p *ProgressBase) BeforeCreate(tx *gorm.DB) error {
	if (p.ContentID == nil) == (p.PrerequisiteID == nil) {
		return ErrProgressContext
	}
	p.ContextKey = ContextKeyFor(p.ContextKind(), p.ContextID())
	if p.Status == "" {
		p.Status = StatusNotStarted
	}
	return nil
}

type VideoProgress struct {
	ProgressBase
	WatchedPercentage float64 `json:"watched_percentage" gorm:"default:0"`
	LastPosition      int     `json:"last_position" gorm:"default:0"`
	Duration          int     `json:"duration" gorm:"default:0"`
	PlayCount         int     `json:"play_count" gorm:"default:0"`
}

func (VideoProgress) TableName() string { return "video_progress" }

type AudioProgress struct {
	ProgressBase
	ListenedPercentage float64 `json:"listened_percentage" gorm:"default:0"`
	LastPosition       int     `json:"last_position" gorm:"default:0"`
	Duration           int     `json:"duration" gorm:"default:0"`
	PlayCount          int     `json:"play_count" gorm:"default:0"`
}

func (AudioProgress) TableName() string { return "audio_progress" }

type DocumentProgress struct {
	ProgressBase
	CurrentPage      int            `json:"current_page" gorm:"default:0"`
	TotalPages       int            `json:"total_pages" gorm:"default:0"`
	PagesViewed      datatypes.JSON `json:"pages_viewed"`
	ViewedPercentage float64        `json:"viewed_percentage" gorm:"default:0"`
}

func (DocumentProgress) TableName() string { return "document_progress" }

type ImageProgress struct {
	ProgressBase
	ViewCount int        `json:"view_count" gorm:"default:0"`
	ViewedAt  *time.Time `json:"viewed_at"`
}

func (ImageProgress) TableName() string { return "image_progress" }

type ExternalProgress struct {
	ProgressBase
	VisitCount    int        `json:"visit_count" gorm:"default:0"`
	LastVisitedAt *time.Time `json:"last_visited_at"`
}

func (ExternalProgress) TableName() string { return "external_progress" }

type InteractiveProgress struct {
	ProgressBase
	CompletionPercentage float64        `json:"completion_percentage" gorm:"default:0"`
	Score                *float64       `json:"score"`
	SuspendData          datatypes.JSON `json:"suspend_data"`
}

func (InteractiveProgress) TableName() string { return "interactive_progress" }

type ScormProgress struct {
	ProgressBase
	LessonStatus   string         `json:"lesson_status" gorm:"size:32;default:'not attempted'"`
	LessonLocation string         `json:"lesson_location"`
	ScoreRaw       *float64       `json:"score_raw"`
	SuspendData    datatypes.JSON `json:"suspend_data"`
}

func (ScormProgress) TableName() string { return "scorm_progress" }

type AssessmentProgress struct {
	ProgressBase
	AttemptsUsed   int     `json:"attempts_used" gorm:"default:0"`
	BestPercentage float64 `json:"best_percentage" gorm:"default:0"`
	Passed         bool    `json:"passed" gorm:"default:false"`
	LastAttemptID  *uint   `json:"last_attempt_id"`
}

func (AssessmentProgress) TableName() string { return "assessment_progress" }

// ActivityProgress covers survey, feedback and assignment items, completed on submission
type ActivityProgress struct {
	ProgressBase
	ActivityType string     `json:"activity_type" gorm:"size:32"`
	SubmittedAt  *time.Time `json:"submitted_at"`
}

func (ActivityProgress) TableName() string { return "activity_progress" }

// PrerequisiteCompletion tracks a prerequisite independent of module structure
type PrerequisiteCompletion struct {
	ID               uint       `json:"id" gorm:"primarykey"`
	ClientID         uint       `json:"client_id" gorm:"uniqueIndex:idx_prereq_completion;not null"`
	UserID           uint       `json:"user_id" gorm:"uniqueIndex:idx_prereq_completion;not null"`
	CourseID         uint       `json:"course_id" gorm:"uniqueIndex:idx_prereq_completion;not null"`
	PrerequisiteID   uint       `json:"prerequisite_id" gorm:"uniqueIndex:idx_prereq_completion;not null"` // course_prerequisites.id
	PackageID        uint       `json:"package_id"`
	PrerequisiteType string     `json:"prerequisite_type" gorm:"size:32"`
	IsCompleted      bool       `json:"is_completed" gorm:"default:false"`
	CompletedAt      *time.Time `json:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CourseProgress is a cache recomputed from leaf rows; never authored directly.
type CourseProgress struct {
	ID                   uint       `json:"id" gorm:"primarykey"`
	ClientID             uint       `json:"client_id" gorm:"uniqueIndex:idx_course_progress_user;not null"`
	UserID               uint       `json:"user_id" gorm:"uniqueIndex:idx_course_progress_user;not null"`
	CourseID             uint       `json:"course_id" gorm:"uniqueIndex:idx_course_progress_user;not null"`
	CompletedItems       int        `json:"completed_items"`
	TotalItems           int        `json:"total_items"`
	CompletionPercentage float64    `json:"completion_percentage"`
	Status               string     `json:"status" gorm:"size:16;default:'not_started'"`
	CurrentModuleID      *uint      `json:"current_module_id"`
	CurrentContentID     *uint      `json:"current_content_id"`
	CompletedAt          *time.Time `json:"completed_at"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}
