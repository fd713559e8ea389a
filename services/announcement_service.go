package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pthanh137/pbl3-lms/model"
	"gorm.io/gorm"
)

// AnnouncementService handles teacher broadcasts to a course's enrolled
// students. Sending creates one read-status row per enrolled student so
// the teacher can see who has caught up.
type AnnouncementService struct {
	db            *gorm.DB
	notifications *NotificationService
}

// NewAnnouncementService creates a new announcement service
func NewAnnouncementService(db *gorm.DB, notifications *NotificationService) *AnnouncementService {
	return &AnnouncementService{db: db, notifications: notifications}
}

// AnnouncementWithStatus pairs an announcement with the reading student's
// own read flag.
type AnnouncementWithStatus struct {
	model.Announcement
	IsRead bool       `json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// SentAnnouncement pairs an announcement with its audience read stats for
// the sending teacher.
type SentAnnouncement struct {
	model.Announcement
	TotalRecipients int64 `json:"total_recipients"`
	TotalRead       int64 `json:"total_read"`
}

// Send publishes an announcement on a course. Only the owning teacher
// (or an admin acting on their behalf) may send; the announcement is
// attributed to the course's teacher either way.
func (s *AnnouncementService) Send(ctx context.Context, sender *model.User, courseID uint, title, message string) (*model.Announcement, error) {
	var course model.Course
	if err := s.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load course: %w", err)
	}

	if !sender.IsAdmin() && course.TeacherID != sender.ID {
		return nil, ErrNotCourseOwner
	}

	announcement := &model.Announcement{
		CourseID:  course.ID,
		TeacherID: course.TeacherID,
		Title:     title,
		Message:   message,
	}

	var studentIDs []uint
	err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("course_id = ?", course.ID).
		Pluck("student_id", &studentIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load enrolled students: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(announcement).Error; err != nil {
			return fmt.Errorf("failed to create announcement: %w", err)
		}

		if len(studentIDs) == 0 {
			return nil
		}
		reads := make([]model.AnnouncementRead, 0, len(studentIDs))
		for _, studentID := range studentIDs {
			reads = append(reads, model.AnnouncementRead{
				AnnouncementID: announcement.ID,
				StudentID:      studentID,
			})
		}
		if err := tx.Create(&reads).Error; err != nil {
			return fmt.Errorf("failed to create read statuses: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifications != nil {
		for _, studentID := range studentIDs {
			s.notifications.fireAndForget(ctx, CreateNotificationRequest{
				UserID:   studentID,
				Type:     model.NotificationTypeInfo,
				Category: model.NotificationCategoryGeneral,
				Title:    "Announcement: " + title,
				Message:  fmt.Sprintf("New announcement in %q.", course.Title),
				CourseID: &course.ID,
				Metadata: &model.NotificationMetadata{CourseID: course.ID, CourseTitle: course.Title},
			})
		}
	}

	return announcement, nil
}

// ListForCourse returns a course's announcements newest first. The owning
// teacher and admins see them all; a student must be enrolled and gets
// their own read flag on each entry.
func (s *AnnouncementService) ListForCourse(ctx context.Context, user *model.User, courseID uint) ([]AnnouncementWithStatus, error) {
	var course model.Course
	if err := s.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load course: %w", err)
	}

	if !user.IsAdmin() && course.TeacherID != user.ID {
		var enrolled int64
		err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
			Where("student_id = ? AND course_id = ?", user.ID, courseID).
			Count(&enrolled).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		if enrolled == 0 {
			return nil, ErrNotEnrolled
		}
	}

	var announcements []model.Announcement
	err := s.db.WithContext(ctx).Preload("Teacher").
		Where("course_id = ?", courseID).
		Order("created_at DESC, id DESC").
		Find(&announcements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load announcements: %w", err)
	}

	result := make([]AnnouncementWithStatus, 0, len(announcements))
	for _, announcement := range announcements {
		entry := AnnouncementWithStatus{Announcement: announcement}

		var read model.AnnouncementRead
		err := s.db.WithContext(ctx).
			Where("announcement_id = ? AND student_id = ?", announcement.ID, user.ID).
			First(&read).Error
		if err == nil {
			entry.IsRead = read.IsRead
			entry.ReadAt = read.ReadAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load read status: %w", err)
		}

		result = append(result, entry)
	}

	return result, nil
}

// ListSent returns the teacher's own announcements with read statistics.
func (s *AnnouncementService) ListSent(ctx context.Context, teacherID uint) ([]SentAnnouncement, error) {
	var announcements []model.Announcement
	err := s.db.WithContext(ctx).Preload("Course").
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC, id DESC").
		Find(&announcements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load announcements: %w", err)
	}

	result := make([]SentAnnouncement, 0, len(announcements))
	for _, announcement := range announcements {
		entry := SentAnnouncement{Announcement: announcement}

		err := s.db.WithContext(ctx).Model(&model.AnnouncementRead{}).
			Where("announcement_id = ?", announcement.ID).
			Count(&entry.TotalRecipients).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count recipients: %w", err)
		}

		err = s.db.WithContext(ctx).Model(&model.AnnouncementRead{}).
			Where("announcement_id = ? AND is_read = ?", announcement.ID, true).
			Count(&entry.TotalRead).Error
		if err != nil {
			return nil, fmt.Errorf("failed to count reads: %w", err)
		}

		result = append(result, entry)
	}

	return result, nil
}

// MarkRead records that the student has seen the announcement. The row is
// created lazily for students who enrolled after the announcement went
// out; the read timestamp is stamped once.
func (s *AnnouncementService) MarkRead(ctx context.Context, student *model.User, announcementID uint) error {
	var announcement model.Announcement
	if err := s.db.WithContext(ctx).First(&announcement, announcementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load announcement: %w", err)
	}

	var enrolled int64
	err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ?", student.ID, announcement.CourseID).
		Count(&enrolled).Error
	if err != nil {
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled == 0 {
		return ErrNotEnrolled
	}

	read := model.AnnouncementRead{
		AnnouncementID: announcementID,
		StudentID:      student.ID,
	}
	err = s.db.WithContext(ctx).
		Where(model.AnnouncementRead{AnnouncementID: announcementID, StudentID: student.ID}).
		FirstOrCreate(&read).Error
	if err != nil {
		return fmt.Errorf("failed to get or create read status: %w", err)
	}

	if !read.IsRead {
		now := time.Now()
		err = s.db.WithContext(ctx).Model(&read).Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to mark announcement read: %w", err)
		}
	}

	return nil
}

// Delete removes an announcement and its read statuses. Only the sending
// teacher or an admin may delete.
func (s *AnnouncementService) Delete(ctx context.Context, user *model.User, announcementID uint) error {
	var announcement model.Announcement
	if err := s.db.WithContext(ctx).First(&announcement, announcementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load announcement: %w", err)
	}

	if !user.IsAdmin() && announcement.TeacherID != user.ID {
		return ErrNotCourseOwner
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("announcement_id = ?", announcementID).
			Delete(&model.AnnouncementRead{}).Error; err != nil {
			return fmt.Errorf("failed to delete read statuses: %w", err)
		}
		if err := tx.Delete(&announcement).Error; err != nil {
			return fmt.Errorf("failed to delete announcement: %w", err)
		}
		return nil
	})
}
