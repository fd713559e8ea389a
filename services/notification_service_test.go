package services

import (
	"context"
	"testing"
	"time"

	"github.com/pthanh137/pbl3-lms/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db)
	ctx := context.Background()

	user := createUser(t, db, model.RoleStudent)

	created, err := svc.CreateNotification(ctx, CreateNotificationRequest{
		UserID:   user.ID,
		Type:     model.NotificationTypeSuccess,
		Category: model.NotificationCategoryEnrollment,
		Title:    "Enrolled",
		Message:  "You are enrolled",
	})
	require.NoError(t, err)
	assert.False(t, created.Read)

	_, err = svc.CreateNotification(ctx, CreateNotificationRequest{
		UserID:   user.ID,
		Type:     model.NotificationTypeInfo,
		Category: model.NotificationCategoryContent,
		Title:    "New lesson",
		Message:  "A lesson was added",
	})
	require.NoError(t, err)

	count, err := svc.GetUnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	t.Run("category filter", func(t *testing.T) {
		list, total, err := svc.GetNotificationsByUser(ctx, ListNotificationsOptions{
			UserID:   user.ID,
			Category: string(model.NotificationCategoryContent),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		assert.Equal(t, "New lesson", list[0].Title)
	})

	require.NoError(t, svc.MarkAsRead(ctx, created.ID, user.ID))

	t.Run("unread filter", func(t *testing.T) {
		list, total, err := svc.GetNotificationsByUser(ctx, ListNotificationsOptions{
			UserID:     user.ID,
			UnreadOnly: true,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		assert.Equal(t, "New lesson", list[0].Title)
	})

	t.Run("other users cannot mark or delete", func(t *testing.T) {
		stranger := createUser(t, db, model.RoleStudent)
		assert.ErrorIs(t, svc.MarkAsRead(ctx, created.ID, stranger.ID), ErrNotFound)
		assert.ErrorIs(t, svc.DeleteNotification(ctx, created.ID, stranger.ID), ErrNotFound)
	})

	updated, err := svc.MarkAllAsRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	count, err = svc.GetUnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	require.NoError(t, svc.DeleteNotification(ctx, created.ID, user.ID))
}

func TestCleanupOldNotifications(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db)
	ctx := context.Background()

	user := createUser(t, db, model.RoleStudent)

	old, err := svc.CreateNotification(ctx, CreateNotificationRequest{
		UserID:   user.ID,
		Type:     model.NotificationTypeInfo,
		Category: model.NotificationCategoryGeneral,
		Title:    "Old and read",
	})
	require.NoError(t, err)
	require.NoError(t, svc.MarkAsRead(ctx, old.ID, user.ID))
	require.NoError(t, db.Model(&model.UserNotification{}).
		Where("id = ?", old.ID).
		UpdateColumn("created_at", time.Now().Add(-120*24*time.Hour)).Error)

	// Old but unread rows must survive the sweep
	stale, err := svc.CreateNotification(ctx, CreateNotificationRequest{
		UserID:   user.ID,
		Type:     model.NotificationTypeInfo,
		Category: model.NotificationCategoryGeneral,
		Title:    "Old but unread",
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.UserNotification{}).
		Where("id = ?", stale.ID).
		UpdateColumn("created_at", time.Now().Add(-120*24*time.Hour)).Error)

	deleted, err := svc.CleanupOldNotifications(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, db.Model(&model.UserNotification{}).
		Where("user_id = ?", user.ID).
		Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

// The fan-out runs on a background goroutine after the request finishes,
// so it must work on a detached context.
func TestNotifyNewLessonFanOut(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db)

	teacher := createUser(t, db, model.RoleTeacher)
	alice := createUser(t, db, model.RoleStudent)
	bob := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	lessons := createLessons(t, db, course.ID, 1)
	createEnrollment(t, db, alice.ID, course.ID, model.EnrollmentAudit, 0)
	createEnrollment(t, db, bob.ID, course.ID, model.EnrollmentPaid, 10)

	// A student of another course must not hear about it
	otherCourse := createCourse(t, db, teacher.ID, 0, true)
	outsider := createUser(t, db, model.RoleStudent)
	createEnrollment(t, db, outsider.ID, otherCourse.ID, model.EnrollmentAudit, 0)

	svc.NotifyNewLesson(context.Background(), course, &lessons[0])

	for _, studentID := range []uint{alice.ID, bob.ID} {
		var notifications []model.UserNotification
		require.NoError(t, db.Where("user_id = ?", studentID).Find(&notifications).Error)
		require.Len(t, notifications, 1)
		assert.Equal(t, model.NotificationCategoryContent, notifications[0].Category)
		require.NotNil(t, notifications[0].CourseID)
		assert.Equal(t, course.ID, *notifications[0].CourseID)
	}

	var outsiderCount int64
	require.NoError(t, db.Model(&model.UserNotification{}).
		Where("user_id = ?", outsider.ID).Count(&outsiderCount).Error)
	assert.Equal(t, int64(0), outsiderCount)
}
