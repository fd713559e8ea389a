package model

import (
	"time"
)

// Announcement is a one-way broadcast from a course's teacher to its
// enrolled students.
type Announcement struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	TeacherID uint      `gorm:"not null;index" json:"teacher_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`

	// Relationships
	Course  Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Teacher User   `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
}

// AnnouncementRead tracks whether a student has seen an announcement.
// One row per (announcement, student), created at send time.
type AnnouncementRead struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	AnnouncementID uint       `gorm:"not null;index;uniqueIndex:idx_announcement_read_pair" json:"announcement_id"`
	StudentID      uint       `gorm:"not null;index;uniqueIndex:idx_announcement_read_pair" json:"student_id"`
	IsRead         bool       `gorm:"default:false" json:"is_read"`
	ReadAt         *time.Time `json:"read_at"`

	// Relationships
	Announcement Announcement `gorm:"foreignKey:AnnouncementID;constraint:OnDelete:CASCADE" json:"-"`
	Student      User         `gorm:"foreignKey:StudentID" json:"-"`
}
