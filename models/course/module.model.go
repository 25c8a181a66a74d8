package course

import "time"

// Module represents a section/module within a course
type Module struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	ClientID    uint      `json:"client_id" gorm:"index;not null"`
	CourseID    uint      `json:"course_id" gorm:"index;not null"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order" gorm:"default:0"`
	IsDeleted   bool      `json:"-" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
