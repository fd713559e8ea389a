package model

import (
	"time"

	"gorm.io/gorm"
)

// Course levels
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Course represents a teacher-owned course in the catalog
type Course struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	TeacherID    uint           `gorm:"not null;index" json:"teacher_id"`
	Title        string         `gorm:"not null" json:"title"`
	Subtitle     string         `gorm:"type:varchar(255)" json:"subtitle"`
	Description  string         `gorm:"type:text" json:"description"`
	ThumbnailURL string         `gorm:"type:varchar(500)" json:"thumbnail_url"`
	Price        float64        `gorm:"not null;default:0" json:"price"`
	Level        string         `gorm:"type:varchar(20);default:'beginner'" json:"level"` // beginner, intermediate, advanced
	Category     string         `gorm:"type:varchar(100);index" json:"category"`
	IsPublished  bool           `gorm:"default:false;index" json:"is_published"`

	// Relationships
	Teacher     User           `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
	Sections    []Section      `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"sections,omitempty"`
	Enrollments []Enrollment   `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
	Reviews     []CourseReview `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// Section represents an ordered part of a course
type Section struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID  uint           `gorm:"not null;index;uniqueIndex:idx_section_course_order" json:"course_id"`
	Title     string         `gorm:"not null" json:"title"`
	SortOrder uint           `gorm:"not null;default:0;uniqueIndex:idx_section_course_order" json:"sort_order"`

	// Relationships
	Course  Course   `gorm:"foreignKey:CourseID" json:"-"`
	Lessons []Lesson `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

// Lesson represents an ordered unit of content inside a section
type Lesson struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	SectionID   uint           `gorm:"not null;index;uniqueIndex:idx_lesson_section_order" json:"section_id"`
	Title       string         `gorm:"not null" json:"title"`
	VideoURL    string         `gorm:"type:varchar(500)" json:"video_url"`
	DocumentURL string         `gorm:"type:varchar(500)" json:"document_url"` // uploaded PDF, stored in Spaces
	Content     string         `gorm:"type:text" json:"content"`
	Duration    uint           `gorm:"default:0" json:"duration"` // seconds
	SortOrder   uint           `gorm:"not null;default:0;uniqueIndex:idx_lesson_section_order" json:"sort_order"`

	// Relationships
	Section    Section          `gorm:"foreignKey:SectionID" json:"-"`
	Progresses []LessonProgress `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"-"`
}
