package services

import (
	"context"
	"testing"

	"github.com/pthanh137/pbl3-lms/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func completeAll(t *testing.T, db *gorm.DB, studentID uint, lessons []model.Lesson) {
	t.Helper()
	progress := NewProgressService(db)
	for _, lesson := range lessons {
		_, err := progress.CompleteLesson(context.Background(), studentID, lesson.ID)
		require.NoError(t, err)
	}
}

func TestIssueCertificate(t *testing.T) {
	db := newTestDB(t)
	svc := NewCertificateService(db)
	progress := NewProgressService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 99.99, true)
	lessons := createLessons(t, db, course.ID, 10)
	enrollment := createEnrollment(t, db, student.ID, course.ID, model.EnrollmentPaid, 99.99)

	for _, lesson := range lessons[:9] {
		_, err := progress.CompleteLesson(ctx, student.ID, lesson.ID)
		require.NoError(t, err)
	}

	// 9 of 10 is not enough
	_, err := svc.Issue(ctx, student, course.ID)
	assert.ErrorIs(t, err, ErrNotCompleted)

	_, err = progress.CompleteLesson(ctx, student.ID, lessons[9].ID)
	require.NoError(t, err)

	payload, err := svc.Issue(ctx, student, course.ID)
	require.NoError(t, err)
	assert.False(t, payload.AlreadyIssued)
	assert.Len(t, payload.CertificateCode, 32)
	assert.Equal(t, course.ID, payload.CourseID)
	assert.Equal(t, student.FullName, payload.StudentName)

	var reloaded model.Enrollment
	require.NoError(t, db.First(&reloaded, enrollment.ID).Error)
	assert.True(t, reloaded.GrantedCertificate)

	t.Run("re-request returns the same certificate", func(t *testing.T) {
		replay, err := svc.Issue(ctx, student, course.ID)
		require.NoError(t, err)
		assert.True(t, replay.AlreadyIssued)
		assert.Equal(t, payload.CertificateCode, replay.CertificateCode)
		assert.Equal(t, payload.CertificateID, replay.CertificateID)

		var count int64
		require.NoError(t, db.Model(&model.Certificate{}).
			Where("user_id = ? AND course_id = ?", student.ID, course.ID).
			Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestIssueCertificateGates(t *testing.T) {
	db := newTestDB(t)
	svc := NewCertificateService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)

	t.Run("only students", func(t *testing.T) {
		course := createCourse(t, db, teacher.ID, 0, true)
		_, err := svc.Issue(ctx, teacher, course.ID)
		assert.ErrorIs(t, err, ErrOnlyStudents)
	})

	t.Run("unpublished course", func(t *testing.T) {
		draft := createCourse(t, db, teacher.ID, 0, false)
		_, err := svc.Issue(ctx, student, draft.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("no enrollment at all", func(t *testing.T) {
		course := createCourse(t, db, teacher.ID, 0, true)
		createLessons(t, db, course.ID, 1)
		_, err := svc.Issue(ctx, student, course.ID)
		assert.ErrorIs(t, err, ErrNotPaidEnrollment)
	})

	t.Run("audit enrollment rejected even when complete", func(t *testing.T) {
		course := createCourse(t, db, teacher.ID, 0, true)
		lessons := createLessons(t, db, course.ID, 2)
		createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)
		completeAll(t, db, student.ID, lessons)

		_, err := svc.Issue(ctx, student, course.ID)
		assert.ErrorIs(t, err, ErrNotPaidEnrollment)
	})

	t.Run("paid course with no lessons", func(t *testing.T) {
		course := createCourse(t, db, teacher.ID, 10, true)
		createEnrollment(t, db, student.ID, course.ID, model.EnrollmentPaid, 10)

		_, err := svc.Issue(ctx, student, course.ID)
		assert.ErrorIs(t, err, ErrNoLessons)
	})
}

// An audit student who finishes the course, gets refused, upgrades, and
// asks again walks away with a certificate. Progress survives the upgrade.
func TestAuditUpgradeThenIssue(t *testing.T) {
	db := newTestDB(t)
	certificates := NewCertificateService(db)
	enrollments := NewEnrollmentService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 59.99, true)
	lessons := createLessons(t, db, course.ID, 3)
	createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)
	completeAll(t, db, student.ID, lessons)

	_, err := certificates.Issue(ctx, student, course.ID)
	require.ErrorIs(t, err, ErrNotPaidEnrollment)

	result, err := enrollments.Purchase(ctx, student, course.ID, model.EnrollmentPaid)
	require.NoError(t, err)
	require.True(t, result.AlreadyEnrolled)

	payload, err := certificates.Issue(ctx, student, course.ID)
	require.NoError(t, err)
	assert.False(t, payload.AlreadyIssued)
	assert.NotEmpty(t, payload.CertificateCode)
}

func TestCertificateQueries(t *testing.T) {
	db := newTestDB(t)
	svc := NewCertificateService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 20, true)
	lessons := createLessons(t, db, course.ID, 1)
	createEnrollment(t, db, student.ID, course.ID, model.EnrollmentPaid, 20)
	completeAll(t, db, student.ID, lessons)

	issued, err := svc.Issue(ctx, student, course.ID)
	require.NoError(t, err)

	t.Run("get for course", func(t *testing.T) {
		payload, err := svc.GetForCourse(ctx, student, course.ID)
		require.NoError(t, err)
		assert.Equal(t, issued.CertificateCode, payload.CertificateCode)
		assert.Equal(t, course.Title, payload.CourseTitle)
	})

	t.Run("get for course without certificate", func(t *testing.T) {
		other := createCourse(t, db, teacher.ID, 0, true)
		_, err := svc.GetForCourse(ctx, student, other.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list mine", func(t *testing.T) {
		list, err := svc.ListMine(ctx, student)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, issued.CertificateCode, list[0].CertificateCode)
	})
}
