package model

import (
	"time"
)

// Enrollment types
const (
	EnrollmentAudit = "audit"
	EnrollmentPaid  = "paid"
)

// Enrollment represents a student's registration in a course.
// Exactly one row exists per (student, course); an audit enrollment is
// upgraded to paid in place, never duplicated.
type Enrollment struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	StudentID          uint      `gorm:"not null;index;uniqueIndex:idx_enrollment_student_course" json:"student_id"`
	CourseID           uint      `gorm:"not null;index;uniqueIndex:idx_enrollment_student_course" json:"course_id"`
	EnrollmentType     string    `gorm:"type:varchar(10);not null;default:'audit'" json:"enrollment_type"` // audit, paid
	PricePaid          float64   `gorm:"not null;default:0" json:"price_paid"`
	ProgressPercent    int       `gorm:"not null;default:0" json:"progress_percent"` // cached, 0-100
	GrantedCertificate bool      `gorm:"default:false" json:"granted_certificate"`

	// Relationships
	Student          User             `gorm:"foreignKey:StudentID" json:"-"`
	Course           Course           `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	LessonProgresses []LessonProgress `gorm:"foreignKey:EnrollmentID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsPaid reports whether the enrollment is certificate-eligible.
func (e *Enrollment) IsPaid() bool { return e.EnrollmentType == EnrollmentPaid }

// LessonProgress tracks a single student's completion of a single lesson.
// is_completed is monotonic: once set it is never cleared by normal flow,
// and completed_at is stamped exactly once on the transition.
type LessonProgress struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	EnrollmentID uint       `gorm:"not null;index;uniqueIndex:idx_progress_enrollment_lesson" json:"enrollment_id"`
	LessonID     uint       `gorm:"not null;index;uniqueIndex:idx_progress_enrollment_lesson" json:"lesson_id"`
	IsCompleted  bool       `gorm:"default:false" json:"is_completed"`
	CompletedAt  *time.Time `json:"completed_at"`

	// Relationships
	Enrollment Enrollment `gorm:"foreignKey:EnrollmentID" json:"-"`
	Lesson     Lesson     `gorm:"foreignKey:LessonID" json:"lesson,omitempty"`
}

// Certificate is a unique, non-revocable proof of completion of a paid
// course. At most one exists per (user, course).
type Certificate struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index;uniqueIndex:idx_certificate_user_course" json:"user_id"`
	CourseID        uint      `gorm:"not null;index;uniqueIndex:idx_certificate_user_course" json:"course_id"`
	EnrollmentID    uint      `gorm:"not null;index" json:"enrollment_id"`
	CertificateCode string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"certificate_code"`
	IssuedAt        time.Time `gorm:"autoCreateTime" json:"issued_at"`

	// Relationships
	User       User       `gorm:"foreignKey:UserID" json:"-"`
	Course     Course     `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Enrollment Enrollment `gorm:"foreignKey:EnrollmentID" json:"-"`
}
