package model

import (
	"time"
)

// Message is one direct message between two users, optionally tied to a
// course for context. Delivery is plain polling CRUD; there is no
// real-time channel.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	SenderID   uint      `gorm:"not null;index:idx_message_pair" json:"sender_id"`
	ReceiverID uint      `gorm:"not null;index:idx_message_pair;index:idx_message_receiver_read" json:"receiver_id"`
	CourseID   *uint     `gorm:"index" json:"course_id,omitempty"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsRead     bool      `gorm:"default:false;index:idx_message_receiver_read" json:"is_read"`

	// Relationships
	Sender   User    `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver User    `gorm:"foreignKey:ReceiverID" json:"-"`
	Course   *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:SET NULL" json:"-"`
}
