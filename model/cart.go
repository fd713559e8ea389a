package model

import (
	"time"
)

// CartItem holds a course a student intends to purchase. The price is
// captured at add time so checkout charges what the student saw.
type CartItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UserID     uint      `gorm:"not null;index;uniqueIndex:idx_cart_user_course" json:"user_id"`
	CourseID   uint      `gorm:"not null;index;uniqueIndex:idx_cart_user_course" json:"course_id"`
	PriceAtAdd float64   `gorm:"not null;default:0" json:"price_at_add"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID" json:"-"`
	Course Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

// TableName specifies the table name for CartItem
func (CartItem) TableName() string {
	return "cart_items"
}
