package model

import (
	"time"
)

// CourseReview is a student's rating of a course. Each student leaves at
// most one review per course; edits update the existing row.
type CourseReview struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CourseID  uint      `gorm:"not null;index;uniqueIndex:idx_review_course_user" json:"course_id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_review_course_user" json:"user_id"`
	Rating    int       `gorm:"not null" json:"rating"` // 1-5 stars
	Comment   string    `gorm:"type:text" json:"comment"`

	// Relationships
	Course Course `gorm:"foreignKey:CourseID" json:"-"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for CourseReview
func (CourseReview) TableName() string {
	return "course_reviews"
}
