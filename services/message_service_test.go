package services

import (
	"context"
	"testing"

	"github.com/pthanh137/pbl3-lms/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	t.Run("student messages their teacher", func(t *testing.T) {
		msg, err := svc.Send(ctx, student, teacher.ID, &course.ID, "When is the next lesson?")
		require.NoError(t, err)
		assert.Equal(t, student.ID, msg.SenderID)
		assert.Equal(t, teacher.ID, msg.ReceiverID)
		require.NotNil(t, msg.CourseID)
		assert.Equal(t, course.ID, *msg.CourseID)
		assert.False(t, msg.IsRead)
	})

	t.Run("teacher replies", func(t *testing.T) {
		_, err := svc.Send(ctx, teacher, student.ID, nil, "Tomorrow.")
		require.NoError(t, err)
	})

	t.Run("unrelated student is refused", func(t *testing.T) {
		stranger := createUser(t, db, model.RoleStudent)
		_, err := svc.Send(ctx, stranger, teacher.ID, nil, "hello")
		assert.ErrorIs(t, err, ErrMessagingDenied)
	})

	t.Run("teacher cannot cold-message an unenrolled student", func(t *testing.T) {
		outsider := createUser(t, db, model.RoleStudent)
		_, err := svc.Send(ctx, teacher, outsider.ID, nil, "enroll in my course")
		assert.ErrorIs(t, err, ErrMessagingDenied)
	})

	t.Run("self message rejected", func(t *testing.T) {
		_, err := svc.Send(ctx, student, student.ID, nil, "note to self")
		assert.ErrorIs(t, err, ErrSelfMessage)
	})

	t.Run("unknown receiver", func(t *testing.T) {
		_, err := svc.Send(ctx, student, 99999, nil, "anyone there?")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown course context", func(t *testing.T) {
		missing := uint(99999)
		_, err := svc.Send(ctx, student, teacher.ID, &missing, "about that course")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSendMessageExistingConversation(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	enrollment := createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	_, err := svc.Send(ctx, student, teacher.ID, nil, "first contact")
	require.NoError(t, err)

	// The conversation stays open even after the enrollment link is gone
	require.NoError(t, db.Delete(enrollment).Error)
	_, err = svc.Send(ctx, student, teacher.ID, nil, "still here")
	require.NoError(t, err)
}

func TestConversation(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	_, err := svc.Send(ctx, student, teacher.ID, nil, "one")
	require.NoError(t, err)
	_, err = svc.Send(ctx, teacher, student.ID, nil, "two")
	require.NoError(t, err)
	_, err = svc.Send(ctx, teacher, student.ID, nil, "three")
	require.NoError(t, err)

	messages, total, err := svc.Conversation(ctx, student.ID, teacher.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, messages, 3)
	assert.Equal(t, "three", messages[0].Content)
	assert.Equal(t, "one", messages[2].Content)

	count, err := svc.UnreadCount(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	updated, err := svc.MarkConversationRead(ctx, student.ID, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	count, err = svc.UnreadCount(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// The student's own outgoing message stays unread for the teacher
	count, err = svc.UnreadCount(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestListConversations(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	alice := createUser(t, db, model.RoleStudent)
	bob := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	createEnrollment(t, db, alice.ID, course.ID, model.EnrollmentAudit, 0)
	createEnrollment(t, db, bob.ID, course.ID, model.EnrollmentAudit, 0)

	_, err := svc.Send(ctx, alice, teacher.ID, nil, "from alice")
	require.NoError(t, err)
	_, err = svc.Send(ctx, bob, teacher.ID, nil, "from bob, first")
	require.NoError(t, err)
	_, err = svc.Send(ctx, bob, teacher.ID, nil, "from bob, latest")
	require.NoError(t, err)

	conversations, err := svc.ListConversations(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, conversations, 2)

	// Most recently active partner first
	assert.Equal(t, bob.ID, conversations[0].PartnerID)
	assert.Equal(t, bob.DisplayName(), conversations[0].PartnerName)
	assert.Equal(t, int64(2), conversations[0].UnreadCount)
	require.NotNil(t, conversations[0].LastMessage)
	assert.Equal(t, "from bob, latest", conversations[0].LastMessage.Content)

	assert.Equal(t, alice.ID, conversations[1].PartnerID)
	assert.Equal(t, int64(1), conversations[1].UnreadCount)

	// A user with no messages has an empty inbox
	conversations, err = svc.ListConversations(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, teacher.ID, conversations[0].PartnerID)
	assert.Equal(t, int64(0), conversations[0].UnreadCount)
}
