package model

import (
	"time"
)

// PasswordReset stores single-use password reset tokens.
type PasswordReset struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	Token     string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsValid reports whether the token is unused and unexpired.
func (p *PasswordReset) IsValid() bool {
	return p.UsedAt == nil && time.Now().Before(p.ExpiresAt)
}
