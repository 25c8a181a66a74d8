package course

import "time"

// Course represents a learning course owned by one client (tenant)
type Course struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	ClientID    uint      `json:"client_id" gorm:"index;not null"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status" gorm:"default:'DRAFT'"` // DRAFT, ACTIVE, INACTIVE
	IsPublished bool      `json:"is_published" gorm:"default:false"`
	IsDeleted   bool      `json:"-" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
