package model

import (
	"time"
)

// AdminAuditLog records mutating admin actions for later review.
type AdminAuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	AdminID    uint      `gorm:"index;not null" json:"admin_id"`
	Action     string    `gorm:"type:varchar(50);not null" json:"action"`   // user_update, user_delete, setting_update, ...
	Resource   string    `gorm:"type:varchar(50);not null" json:"resource"` // users, courses, ...
	ResourceID string    `gorm:"type:varchar(50)" json:"resource_id"`
	Detail     string    `gorm:"type:text" json:"detail"`
	IPAddress  string    `gorm:"type:varchar(45)" json:"ip_address"`

	// Relationships
	Admin User `gorm:"foreignKey:AdminID;constraint:OnDelete:CASCADE" json:"-"`
}
