package course

import "time"

// Certificate is issued once per user and course when the rollup first reaches 100%
type Certificate struct {
	ID                uint      `json:"id" gorm:"primarykey"`
	ClientID          uint      `json:"client_id" gorm:"uniqueIndex:idx_certificate_user_course;not null"`
	UserID            uint      `json:"user_id" gorm:"uniqueIndex:idx_certificate_user_course;not null"`
	CourseID          uint      `json:"course_id" gorm:"uniqueIndex:idx_certificate_user_course;not null"`
	CertificateNumber string    `json:"certificate_number" gorm:"size:64;unique"`
	IssuedAt          time.Time `json:"issued_at"`
}
