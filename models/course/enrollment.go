package course

import "time"

// Enrollment tracks a user's enrollment in a course with progress mirrored from CourseProgress
type Enrollment struct {
	ID                uint       `json:"id" gorm:"primarykey"`
	ClientID          uint       `json:"client_id" gorm:"uniqueIndex:idx_enrollment_user_course;not null"`
	UserID            uint       `json:"user_id" gorm:"uniqueIndex:idx_enrollment_user_course;not null"`
	CourseID          uint       `json:"course_id" gorm:"uniqueIndex:idx_enrollment_user_course;not null"`
	Status            string     `json:"status" gorm:"default:'ENROLLED'"` // ENROLLED, IN_PROGRESS, COMPLETED
	Progress          float64    `json:"progress" gorm:"default:0"`        // Completion percentage (0-100)
	CompletedContents int        `json:"completed_contents" gorm:"default:0"`
	TotalContents     int        `json:"total_contents" gorm:"default:0"`
	CompletedAt       *time.Time `json:"completed_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

const (
	EnrollmentEnrolled   = "ENROLLED"
	EnrollmentInProgress = "IN_PROGRESS"
	EnrollmentCompleted  = "COMPLETED"
)
