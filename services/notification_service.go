package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/pthanh137/pbl3-lms/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationService handles user notifications
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// CreateNotificationRequest represents a request to create a notification
type CreateNotificationRequest struct {
	UserID   uint
	Type     model.NotificationType
	Category model.NotificationCategory
	Title    string
	Message  string
	CourseID *uint
	Metadata *model.NotificationMetadata
}

// ListNotificationsOptions represents options for listing notifications
type ListNotificationsOptions struct {
	UserID     uint
	UnreadOnly bool
	Category   string
	Limit      int
	Offset     int
}

// CreateNotification creates a new notification for a user
func (s *NotificationService) CreateNotification(ctx context.Context, req CreateNotificationRequest) (*model.UserNotification, error) {
	notification := &model.UserNotification{
		UserID:   req.UserID,
		Type:     req.Type,
		Category: req.Category,
		Title:    req.Title,
		Message:  req.Message,
		Read:     false,
		CourseID: req.CourseID,
	}

	if req.Metadata != nil {
		metadataJSON, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(metadataJSON)
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return notification, nil
}

// GetNotificationsByUser retrieves notifications for a user
func (s *NotificationService) GetNotificationsByUser(ctx context.Context, opts ListNotificationsOptions) ([]model.UserNotification, int64, error) {
	var notifications []model.UserNotification
	var total int64

	query := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("user_id = ?", opts.UserID)

	if opts.UnreadOnly {
		query = query.Where("read = ?", false)
	}

	if opts.Category != "" {
		query = query.Where("category = ?", opts.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	} else {
		query = query.Limit(50) // Default limit
	}

	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	if err := query.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkAsRead marks a notification as read
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uint, userID uint) error {
	result := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)

	if result.Error != nil {
		return fmt.Errorf("failed to mark notification as read: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkAllAsRead marks all notifications for a user as read
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	result := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)

	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteNotification deletes a notification
func (s *NotificationService) DeleteNotification(ctx context.Context, notificationID uint, userID uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&model.UserNotification{})

	if result.Error != nil {
		return fmt.Errorf("failed to delete notification: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetUnreadCount returns the count of unread notifications for a user
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64

	err := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// CleanupOldNotifications removes read notifications older than the specified duration
func (s *NotificationService) CleanupOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result := s.db.WithContext(ctx).
		Where("created_at < ? AND read = ?", cutoff, true).
		Delete(&model.UserNotification{})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup old notifications: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d old notifications", result.RowsAffected)
	}

	return result.RowsAffected, nil
}

// NotifyEnrollment tells a student their enrollment went through.
func (s *NotificationService) NotifyEnrollment(ctx context.Context, userID uint, course *model.Course, enrollmentType string) {
	title := "Enrolled in " + course.Title
	message := fmt.Sprintf("You are now enrolled in %q (%s).", course.Title, enrollmentType)
	s.fireAndForget(ctx, CreateNotificationRequest{
		UserID:   userID,
		Type:     model.NotificationTypeSuccess,
		Category: model.NotificationCategoryEnrollment,
		Title:    title,
		Message:  message,
		CourseID: &course.ID,
		Metadata: &model.NotificationMetadata{CourseID: course.ID, CourseTitle: course.Title},
	})
}

// NotifyPurchase tells a student a payment was recorded.
func (s *NotificationService) NotifyPurchase(ctx context.Context, userID uint, course *model.Course, amount float64) {
	title := "Purchase confirmed"
	message := fmt.Sprintf("Your purchase of %q for $%.2f was successful.", course.Title, amount)
	s.fireAndForget(ctx, CreateNotificationRequest{
		UserID:   userID,
		Type:     model.NotificationTypeSuccess,
		Category: model.NotificationCategoryPurchase,
		Title:    title,
		Message:  message,
		CourseID: &course.ID,
		Metadata: &model.NotificationMetadata{CourseID: course.ID, CourseTitle: course.Title},
	})
}

// NotifyCertificate tells a student their certificate is ready.
func (s *NotificationService) NotifyCertificate(ctx context.Context, userID uint, course *model.Course, certificateCode string) {
	title := "Certificate issued"
	message := fmt.Sprintf("Congratulations, you earned a certificate for %q.", course.Title)
	s.fireAndForget(ctx, CreateNotificationRequest{
		UserID:   userID,
		Type:     model.NotificationTypeSuccess,
		Category: model.NotificationCategoryCertificate,
		Title:    title,
		Message:  message,
		CourseID: &course.ID,
		Metadata: &model.NotificationMetadata{
			CourseID:        course.ID,
			CourseTitle:     course.Title,
			CertificateCode: certificateCode,
		},
	})
}

// NotifyNewLesson fans out a content notification to every student
// enrolled in the lesson's course.
func (s *NotificationService) NotifyNewLesson(ctx context.Context, course *model.Course, lesson *model.Lesson) {
	var studentIDs []uint
	err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("course_id = ?", course.ID).
		Pluck("student_id", &studentIDs).Error
	if err != nil {
		log.Printf("Failed to load enrolled students for course %d: %v", course.ID, err)
		return
	}

	for _, studentID := range studentIDs {
		s.fireAndForget(ctx, CreateNotificationRequest{
			UserID:   studentID,
			Type:     model.NotificationTypeInfo,
			Category: model.NotificationCategoryContent,
			Title:    "New lesson in " + course.Title,
			Message:  fmt.Sprintf("Lesson %q was added to %q.", lesson.Title, course.Title),
			CourseID: &course.ID,
			Metadata: &model.NotificationMetadata{
				CourseID:    course.ID,
				CourseTitle: course.Title,
				LessonID:    lesson.ID,
				LessonTitle: lesson.Title,
			},
		})
	}
}

// fireAndForget creates a notification, logging instead of failing the
// caller's request when the insert goes wrong.
func (s *NotificationService) fireAndForget(ctx context.Context, req CreateNotificationRequest) {
	if _, err := s.CreateNotification(ctx, req); err != nil {
		log.Printf("Failed to create notification for user %d: %v", req.UserID, err)
	}
}
