package course

import (
	"time"

	"gorm.io/datatypes"
)

// Attempt statuses
const (
	AttemptInProgress = "in_progress"
	AttemptCompleted  = "completed"
)

// Question types
const (
	QuestionSingleChoice   = "single_choice"
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionShortAnswer    = "short_answer"
)

// AssessmentPackage is the authoring package for an assessment
type AssessmentPackage struct {
	ID               uint      `json:"id" gorm:"primarykey"`
	ClientID         uint      `json:"client_id" gorm:"index;not null"`
	Title            string    `json:"title"`
	PassingScore     float64   `json:"passing_score"`
	NumAttempts      int       `json:"num_attempts" gorm:"default:0"` // 0 = unlimited
	TimeLimitMinutes int       `json:"time_limit_minutes" gorm:"default:0"`
	IsDeleted        bool      `json:"-" gorm:"default:false"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type AssessmentQuestion struct {
	ID           uint               `json:"id" gorm:"primarykey"`
	ClientID     uint               `json:"client_id" gorm:"index;not null"`
	AssessmentID uint               `json:"assessment_id" gorm:"index;not null"`
	QuestionType string             `json:"question_type" gorm:"size:32"`
	Prompt       string             `json:"prompt" gorm:"type:text"`
	CorrectText  string             `json:"-"` // short_answer only
	Points       float64            `json:"points"`
	SortOrder    int                `json:"sort_order" gorm:"default:0"`
	IsDeleted    bool               `json:"-" gorm:"default:false"`
	Options      []AssessmentOption `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

// AssessmentOption represents an option for a choice question
type AssessmentOption struct {
	ID         uint   `json:"id" gorm:"primarykey"`
	QuestionID uint   `json:"question_id" gorm:"index;not null"`
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"-" gorm:"default:false"`
	SortOrder  int    `json:"sort_order" gorm:"default:0"`
}

// AssessmentAttempt is one learner attempt; the launch context (module item or
// prerequisite) is recorded so completion can be applied to it later.
type AssessmentAttempt struct {
	ID              uint       `json:"id" gorm:"primarykey"`
	ClientID        uint       `json:"client_id" gorm:"uniqueIndex:idx_attempt_user_number;not null"`
	AssessmentID    uint       `json:"assessment_id" gorm:"uniqueIndex:idx_attempt_user_number;not null"`
	UserID          uint       `json:"user_id" gorm:"uniqueIndex:idx_attempt_user_number;not null"`
	CourseID        uint       `json:"course_id" gorm:"index"`
	ContentID       *uint      `json:"content_id"`
	PrerequisiteID  *uint      `json:"prerequisite_id"`
	AttemptNumber   int        `json:"attempt_number" gorm:"uniqueIndex:idx_attempt_user_number;not null"`
	Status          string     `json:"status" gorm:"size:16;default:'in_progress';index"`
	Score           float64    `json:"score"`
	MaxScore        float64    `json:"max_score"`
	Percentage      float64    `json:"percentage"`
	Passed          bool       `json:"passed"`
	TimeRemaining   int        `json:"time_remaining"` // seconds, 0 when untimed
	CurrentQuestion int        `json:"current_question"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// AttemptAnswer is the latest answer for one question of an attempt
type AttemptAnswer struct {
	ID            uint           `json:"id" gorm:"primarykey"`
	AttemptID     uint           `json:"attempt_id" gorm:"uniqueIndex:idx_attempt_question;not null"`
	QuestionID    uint           `json:"question_id" gorm:"uniqueIndex:idx_attempt_question;not null"`
	Answer        datatypes.JSON `json:"answer"`
	IsCorrect     bool           `json:"is_correct"`
	PointsAwarded float64        `json:"points_awarded"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
