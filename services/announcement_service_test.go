package services

import (
	"context"
	"testing"

	"github.com/pthanh137/pbl3-lms/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAnnouncement(t *testing.T) {
	db := newTestDB(t)
	notifications := NewNotificationService(db)
	svc := NewAnnouncementService(db, notifications)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	alice := createUser(t, db, model.RoleStudent)
	bob := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	createEnrollment(t, db, alice.ID, course.ID, model.EnrollmentAudit, 0)
	createEnrollment(t, db, bob.ID, course.ID, model.EnrollmentPaid, 10)

	announcement, err := svc.Send(ctx, teacher, course.ID, "Exam week", "No new lessons until Friday.")
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, announcement.TeacherID)

	// One unread status row per enrolled student
	var reads []model.AnnouncementRead
	require.NoError(t, db.Where("announcement_id = ?", announcement.ID).Find(&reads).Error)
	require.Len(t, reads, 2)
	for _, read := range reads {
		assert.False(t, read.IsRead)
		assert.Nil(t, read.ReadAt)
	}

	// Each student also gets an in-app notification
	var notified int64
	require.NoError(t, db.Model(&model.UserNotification{}).
		Where("category = ?", model.NotificationCategoryGeneral).
		Count(&notified).Error)
	assert.Equal(t, int64(2), notified)

	t.Run("only the owner may send", func(t *testing.T) {
		other := createUser(t, db, model.RoleTeacher)
		_, err := svc.Send(ctx, other, course.ID, "Hijack", "nope")
		assert.ErrorIs(t, err, ErrNotCourseOwner)
	})

	t.Run("admin sends on the teacher's behalf", func(t *testing.T) {
		admin := createUser(t, db, model.RoleAdmin)
		sent, err := svc.Send(ctx, admin, course.ID, "Maintenance", "Platform downtime tonight.")
		require.NoError(t, err)
		assert.Equal(t, teacher.ID, sent.TeacherID)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := svc.Send(ctx, teacher, 99999, "x", "y")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAnnouncementListAndMarkRead(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnnouncementService(db, nil)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	announcement, err := svc.Send(ctx, teacher, course.ID, "Welcome", "Glad to have you.")
	require.NoError(t, err)

	entries, err := svc.ListForCourse(ctx, student, course.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsRead)
	assert.Nil(t, entries[0].ReadAt)

	require.NoError(t, svc.MarkRead(ctx, student, announcement.ID))

	entries, err = svc.ListForCourse(ctx, student, course.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsRead)
	require.NotNil(t, entries[0].ReadAt)
	firstReadAt := *entries[0].ReadAt

	// Marking again keeps the original timestamp
	require.NoError(t, svc.MarkRead(ctx, student, announcement.ID))
	entries, err = svc.ListForCourse(ctx, student, course.ID)
	require.NoError(t, err)
	require.NotNil(t, entries[0].ReadAt)
	assert.Equal(t, firstReadAt.Unix(), entries[0].ReadAt.Unix())

	t.Run("non-enrolled student refused", func(t *testing.T) {
		outsider := createUser(t, db, model.RoleStudent)
		_, err := svc.ListForCourse(ctx, outsider, course.ID)
		assert.ErrorIs(t, err, ErrNotEnrolled)
		assert.ErrorIs(t, svc.MarkRead(ctx, outsider, announcement.ID), ErrNotEnrolled)
	})

	t.Run("late enrollee gets a lazy status row", func(t *testing.T) {
		late := createUser(t, db, model.RoleStudent)
		createEnrollment(t, db, late.ID, course.ID, model.EnrollmentAudit, 0)

		require.NoError(t, svc.MarkRead(ctx, late, announcement.ID))

		var read model.AnnouncementRead
		require.NoError(t, db.Where("announcement_id = ? AND student_id = ?", announcement.ID, late.ID).
			First(&read).Error)
		assert.True(t, read.IsRead)
	})
}

func TestAnnouncementListSent(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnnouncementService(db, nil)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	alice := createUser(t, db, model.RoleStudent)
	bob := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	createEnrollment(t, db, alice.ID, course.ID, model.EnrollmentAudit, 0)
	createEnrollment(t, db, bob.ID, course.ID, model.EnrollmentAudit, 0)

	announcement, err := svc.Send(ctx, teacher, course.ID, "Week 1", "Read chapter one.")
	require.NoError(t, err)
	require.NoError(t, svc.MarkRead(ctx, alice, announcement.ID))

	sent, err := svc.ListSent(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, int64(2), sent[0].TotalRecipients)
	assert.Equal(t, int64(1), sent[0].TotalRead)

	// Another teacher sees nothing
	other := createUser(t, db, model.RoleTeacher)
	sent, err = svc.ListSent(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, sent)
}

func TestAnnouncementDelete(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnnouncementService(db, nil)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	announcement, err := svc.Send(ctx, teacher, course.ID, "Oops", "Wrong course, ignore.")
	require.NoError(t, err)

	other := createUser(t, db, model.RoleTeacher)
	assert.ErrorIs(t, svc.Delete(ctx, other, announcement.ID), ErrNotCourseOwner)

	require.NoError(t, svc.Delete(ctx, teacher, announcement.ID))

	var announcements, reads int64
	require.NoError(t, db.Model(&model.Announcement{}).
		Where("id = ?", announcement.ID).Count(&announcements).Error)
	require.NoError(t, db.Model(&model.AnnouncementRead{}).
		Where("announcement_id = ?", announcement.ID).Count(&reads).Error)
	assert.Equal(t, int64(0), announcements)
	assert.Equal(t, int64(0), reads)

	assert.ErrorIs(t, svc.Delete(ctx, teacher, announcement.ID), ErrNotFound)
}
