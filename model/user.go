package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User represents a registered user in the system
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	FullName     string         `gorm:"type:varchar(255)" json:"full_name"`
	Role         string         `gorm:"type:varchar(20);default:'student'" json:"role"` // student, teacher, admin
	AvatarURL    string         `gorm:"type:varchar(500)" json:"avatar_url"`
	Bio          string         `gorm:"type:text" json:"bio"`
	Headline     string         `gorm:"type:varchar(255)" json:"headline"`
	Country      string         `gorm:"type:varchar(100)" json:"country"`
	Language     string         `gorm:"type:varchar(50);default:'en'" json:"language"`
	SocialLinks  datatypes.JSON `gorm:"type:jsonb" json:"social_links,omitempty"`
	TokenVersion int            `gorm:"default:0" json:"-"` // Increment to invalidate all user tokens

	// Relationships
	Courses        []Course            `gorm:"foreignKey:TeacherID;constraint:OnDelete:CASCADE" json:"-"`
	Enrollments    []Enrollment        `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
	Certificates   []Certificate       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CartItems      []CartItem          `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Payments       []Payment           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Reviews        []CourseReview      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Notifications  []UserNotification  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TokenBlacklist []JWTTokenBlacklist `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// DisplayName returns the name shown on certificates and rosters,
// falling back to the email when no full name is set.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

func (u *User) IsStudent() bool { return u.Role == RoleStudent }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
