package services

import (
	"context"
	"testing"

	"github.com/pthanh137/pbl3-lms/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnroll(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 29.99, true)

	enrollment, err := svc.Enroll(ctx, student, course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentAudit, enrollment.EnrollmentType)
	assert.Equal(t, float64(0), enrollment.PricePaid)
	assert.Equal(t, 0, enrollment.ProgressPercent)

	t.Run("second enroll rejected", func(t *testing.T) {
		_, err := svc.Enroll(ctx, student, course.ID)
		assert.ErrorIs(t, err, ErrAlreadyEnrolled)

		var count int64
		require.NoError(t, db.Model(&model.Enrollment{}).
			Where("student_id = ? AND course_id = ?", student.ID, course.ID).
			Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("teacher cannot enroll in own course", func(t *testing.T) {
		_, err := svc.Enroll(ctx, teacher, course.ID)
		assert.ErrorIs(t, err, ErrSelfPurchaseDenied)
	})

	t.Run("unpublished course hidden", func(t *testing.T) {
		draft := createCourse(t, db, teacher.ID, 0, false)
		_, err := svc.Enroll(ctx, student, draft.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPurchaseFreshAudit(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 19.99, true)

	result, err := svc.Purchase(ctx, student, course.ID, model.EnrollmentAudit)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.False(t, result.AlreadyEnrolled)
	assert.Equal(t, model.EnrollmentAudit, result.EnrollmentType)

	var enrollment model.Enrollment
	require.NoError(t, db.Where("student_id = ? AND course_id = ?", student.ID, course.ID).
		First(&enrollment).Error)
	assert.Equal(t, model.EnrollmentAudit, enrollment.EnrollmentType)
	assert.Equal(t, float64(0), enrollment.PricePaid)

	// Audit enrollments never create a payment row
	var payments int64
	require.NoError(t, db.Model(&model.Payment{}).
		Where("user_id = ?", student.ID).
		Count(&payments).Error)
	assert.Equal(t, int64(0), payments)
}

func TestPurchaseFreshPaid(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 19.99, true)

	result, err := svc.Purchase(ctx, student, course.ID, model.EnrollmentPaid)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, model.EnrollmentPaid, result.EnrollmentType)

	var enrollment model.Enrollment
	require.NoError(t, db.Where("student_id = ? AND course_id = ?", student.ID, course.ID).
		First(&enrollment).Error)
	assert.Equal(t, 19.99, enrollment.PricePaid)

	var payment model.Payment
	require.NoError(t, db.Where("user_id = ?", student.ID).First(&payment).Error)
	assert.Equal(t, model.PaymentSourceSingle, payment.Source)
	assert.Equal(t, model.PaymentSucceeded, payment.Status)
	assert.Equal(t, 19.99, payment.Amount)
	assert.NotEmpty(t, payment.ReferenceCode)
}

func TestPurchaseAuditThenAudit(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 19.99, true)
	createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	result, err := svc.Purchase(ctx, student, course.ID, model.EnrollmentAudit)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.True(t, result.AlreadyEnrolled)
	assert.Equal(t, model.EnrollmentAudit, result.EnrollmentType)
}

func TestPurchaseUpgradePreservesProgress(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db)
	progress := NewProgressService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 49.99, true)
	lessons := createLessons(t, db, course.ID, 4)
	enrollment := createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	_, err := progress.CompleteLesson(ctx, student.ID, lessons[0].ID)
	require.NoError(t, err)
	_, err = progress.CompleteLesson(ctx, student.ID, lessons[1].ID)
	require.NoError(t, err)

	result, err := svc.Purchase(ctx, student, course.ID, model.EnrollmentPaid)
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.True(t, result.AlreadyEnrolled)
	assert.Equal(t, model.EnrollmentPaid, result.EnrollmentType)

	// Same row, upgraded in place, progress untouched
	var reloaded model.Enrollment
	require.NoError(t, db.First(&reloaded, enrollment.ID).Error)
	assert.Equal(t, model.EnrollmentPaid, reloaded.EnrollmentType)
	assert.Equal(t, 49.99, reloaded.PricePaid)
	assert.Equal(t, 50, reloaded.ProgressPercent)

	var count int64
	require.NoError(t, db.Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ?", student.ID, course.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var payment model.Payment
	require.NoError(t, db.Where("user_id = ?", student.ID).First(&payment).Error)
	assert.Equal(t, model.PaymentSourceUpgrade, payment.Source)
	assert.Equal(t, 49.99, payment.Amount)
}

func TestPurchasePaidThenAnything(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 19.99, true)
	createEnrollment(t, db, student.ID, course.ID, model.EnrollmentPaid, 19.99)

	for _, mode := range []string{model.EnrollmentAudit, model.EnrollmentPaid} {
		result, err := svc.Purchase(ctx, student, course.ID, mode)
		require.NoError(t, err)
		assert.False(t, result.Created)
		assert.True(t, result.AlreadyEnrolled)
		assert.Equal(t, model.EnrollmentPaid, result.EnrollmentType)
	}

	// No second payment for replayed purchases
	var payments int64
	require.NoError(t, db.Model(&model.Payment{}).
		Where("user_id = ?", student.ID).
		Count(&payments).Error)
	assert.Equal(t, int64(0), payments)
}

func TestPurchaseValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 19.99, true)

	t.Run("empty mode defaults to paid", func(t *testing.T) {
		result, err := svc.Purchase(ctx, student, course.ID, "")
		require.NoError(t, err)
		assert.Equal(t, model.EnrollmentPaid, result.EnrollmentType)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, err := svc.Purchase(ctx, student, course.ID, "premium")
		assert.ErrorIs(t, err, ErrInvalidMode)
	})

	t.Run("cannot buy own course", func(t *testing.T) {
		ownCourse := createCourse(t, db, student.ID, 9.99, true)
		_, err := svc.Purchase(ctx, student, ownCourse.ID, model.EnrollmentPaid)
		assert.ErrorIs(t, err, ErrSelfPurchaseDenied)
	})

	t.Run("non-student rejected", func(t *testing.T) {
		admin := createUser(t, db, model.RoleAdmin)
		_, err := svc.Purchase(ctx, admin, course.ID, model.EnrollmentPaid)
		assert.ErrorIs(t, err, ErrOnlyStudents)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := svc.Purchase(ctx, student, 99999, model.EnrollmentPaid)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCourseStudentsRoster(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db)
	progress := NewProgressService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	course := createCourse(t, db, teacher.ID, 0, true)
	lessons := createLessons(t, db, course.ID, 2)

	finisher := createUser(t, db, model.RoleStudent)
	starter := createUser(t, db, model.RoleStudent)
	createEnrollment(t, db, finisher.ID, course.ID, model.EnrollmentPaid, 0)
	createEnrollment(t, db, starter.ID, course.ID, model.EnrollmentAudit, 0)

	for _, lesson := range lessons {
		_, err := progress.CompleteLesson(ctx, finisher.ID, lesson.ID)
		require.NoError(t, err)
	}

	roster, err := svc.CourseStudents(ctx, teacher, course.ID, RosterOptions{})
	require.NoError(t, err)
	require.Len(t, roster, 2)

	completed, err := svc.CourseStudents(ctx, teacher, course.ID, RosterOptions{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, finisher.ID, completed[0].StudentID)
	assert.Equal(t, 100, completed[0].ProgressPercent)

	inProgress, err := svc.CourseStudents(ctx, teacher, course.ID, RosterOptions{Status: "in_progress"})
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, starter.ID, inProgress[0].StudentID)

	t.Run("only the owner may read the roster", func(t *testing.T) {
		other := createUser(t, db, model.RoleTeacher)
		_, err := svc.CourseStudents(ctx, other, course.ID, RosterOptions{})
		assert.ErrorIs(t, err, ErrNotCourseOwner)
	})
}

func TestRemoveStudent(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db)
	progress := NewProgressService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	lessons := createLessons(t, db, course.ID, 1)
	enrollment := createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	_, err := progress.CompleteLesson(ctx, student.ID, lessons[0].ID)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveStudent(ctx, teacher, course.ID, student.ID))

	var enrollments, progresses int64
	require.NoError(t, db.Model(&model.Enrollment{}).
		Where("id = ?", enrollment.ID).Count(&enrollments).Error)
	require.NoError(t, db.Model(&model.LessonProgress{}).
		Where("enrollment_id = ?", enrollment.ID).Count(&progresses).Error)
	assert.Equal(t, int64(0), enrollments)
	assert.Equal(t, int64(0), progresses)

	assert.ErrorIs(t, svc.RemoveStudent(ctx, teacher, course.ID, student.ID), ErrNotFound)
}

// Admins share the roster and removal powers of the owning teacher.
func TestRosterAdminAccess(t *testing.T) {
	db := newTestDB(t)
	svc := NewEnrollmentService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	admin := createUser(t, db, model.RoleAdmin)
	course := createCourse(t, db, teacher.ID, 0, true)
	createLessons(t, db, course.ID, 2)
	createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	roster, err := svc.CourseStudents(ctx, admin, course.ID, RosterOptions{})
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, student.ID, roster[0].StudentID)

	require.NoError(t, svc.RemoveStudent(ctx, admin, course.ID, student.ID))

	var remaining int64
	require.NoError(t, db.Model(&model.Enrollment{}).
		Where("course_id = ?", course.ID).Count(&remaining).Error)
	assert.Equal(t, int64(0), remaining)
}
