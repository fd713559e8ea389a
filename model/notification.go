package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType represents the type/severity of notification
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
)

// NotificationCategory represents the category of notification
type NotificationCategory string

const (
	NotificationCategoryEnrollment  NotificationCategory = "enrollment"
	NotificationCategoryPurchase    NotificationCategory = "purchase"
	NotificationCategoryCertificate NotificationCategory = "certificate"
	NotificationCategoryContent     NotificationCategory = "content" // new/updated lessons and sections
	NotificationCategoryGeneral     NotificationCategory = "general"
)

// UserNotification represents a notification for a user
type UserNotification struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	DeletedAt gorm.DeletedAt       `gorm:"index" json:"-"`
	UserID    uint                 `gorm:"index;not null" json:"user_id"`
	Type      NotificationType     `gorm:"type:varchar(20);not null" json:"type"`
	Category  NotificationCategory `gorm:"type:varchar(30);not null" json:"category"`
	Title     string               `gorm:"type:varchar(255);not null" json:"title"`
	Message   string               `gorm:"type:text" json:"message"`
	Read      bool                 `gorm:"default:false" json:"read"`
	CourseID  *uint                `gorm:"index" json:"course_id,omitempty"`
	Metadata  datatypes.JSON       `gorm:"type:jsonb" json:"metadata,omitempty"` // Additional context

	// Relationships
	User   User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// NotificationMetadata represents common metadata fields
type NotificationMetadata struct {
	CourseID        uint   `json:"course_id,omitempty"`
	CourseTitle     string `json:"course_title,omitempty"`
	LessonID        uint   `json:"lesson_id,omitempty"`
	LessonTitle     string `json:"lesson_title,omitempty"`
	CertificateCode string `json:"certificate_code,omitempty"`
	ProgressPercent int    `json:"progress_percent,omitempty"`
}
