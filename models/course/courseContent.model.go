package course

import (
	"time"

	"gorm.io/datatypes"
)

// Content types. Module items and prerequisites reference a package of one of these types.
const (
	TypeVideo       = "video"
	TypeAudio       = "audio"
	TypeDocument    = "document"
	TypeImage       = "image"
	TypeExternal    = "external"
	TypeInteractive = "interactive"
	TypeScorm       = "scorm"
	TypeAssessment  = "assessment"
	TypeSurvey      = "survey"
	TypeFeedback    = "feedback"
	TypeAssignment  = "assignment"
)

// CourseModuleContent places one content package inside a module
type CourseModuleContent struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	ClientID    uint      `json:"client_id" gorm:"index;not null"`
	CourseID    uint      `json:"course_id" gorm:"index;not null"`
	ModuleID    uint      `json:"module_id" gorm:"index;not null"`
	ContentType string    `json:"content_type" gorm:"size:32;index:idx_cmc_package"`
	ContentID   uint      `json:"content_id" gorm:"index:idx_cmc_package"` // package id
	Title       string    `json:"title"`
	IsRequired  bool      `json:"is_required"`
	SortOrder   int       `json:"sort_order" gorm:"default:0"`
	IsDeleted   bool      `json:"-" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CoursePrerequisite is a package a course requires independent of module placement
type CoursePrerequisite struct {
	ID               uint      `json:"id" gorm:"primarykey"`
	ClientID         uint      `json:"client_id" gorm:"index;not null"`
	CourseID         uint      `json:"course_id" gorm:"index;not null"`
	PrerequisiteID   uint      `json:"prerequisite_id" gorm:"index:idx_prereq_package"` // package id
	PrerequisiteType string    `json:"prerequisite_type" gorm:"size:32;index:idx_prereq_package"`
	Title            string    `json:"title"`
	IsRequired       bool      `json:"is_required"`
	SortOrder        int       `json:"sort_order" gorm:"default:0"`
	IsDeleted        bool      `json:"-" gorm:"default:false"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ContentPackage is the authoring package behind every non-assessment content type.
// Config holds type settings: completion_threshold, total_pages, min_time_seconds, duration_seconds.
type ContentPackage struct {
	ID          uint           `json:"id" gorm:"primarykey"`
	ClientID    uint           `json:"client_id" gorm:"index;not null"`
	ContentType string         `json:"content_type" gorm:"size:32;index"`
	Title       string         `json:"title"`
	URL         string         `json:"url"`
	Config      datatypes.JSON `json:"config"`
	IsDeleted   bool           `json:"-" gorm:"default:false"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PackageConfig is the decoded form of ContentPackage.Config
type PackageConfig struct {
	CompletionThreshold float64 `json:"completion_threshold"`
	TotalPages          int     `json:"total_pages"`
	MinTimeSeconds      int     `json:"min_time_seconds"`
	DurationSeconds     int     `json:"duration_seconds"`
}
