package model

import (
	"time"
)

// JWTTokenBlacklist stores revoked token JTIs until they would have
// expired anyway. A cron job purges expired rows.
type JWTTokenBlacklist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	JTI       string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"jti"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	Reason    string    `gorm:"type:varchar(50)" json:"reason"` // logout, password_change, admin_revoke
}

// TableName specifies the table name for JWTTokenBlacklist
func (JWTTokenBlacklist) TableName() string {
	return "jwt_token_blacklist"
}
