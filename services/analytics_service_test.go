package services

import (
	"context"
	"testing"

	"github.com/pthanh137/pbl3-lms/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Completion counts must come from the completion rows, not the cached
// progress_percent, so drifted caches cannot skew the numbers.
func TestDashboardCompletionFromCounts(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalyticsService(db, nil)
	progress := NewProgressService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	course := createCourse(t, db, teacher.ID, 0, true)
	lessons := createLessons(t, db, course.ID, 2)

	// Cached 100 but only half the lessons are actually done
	liar := createUser(t, db, model.RoleStudent)
	stale := createEnrollment(t, db, liar.ID, course.ID, model.EnrollmentPaid, 10)
	_, err := progress.CompleteLesson(ctx, liar.ID, lessons[0].ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.Enrollment{}).
		Where("id = ?", stale.ID).
		UpdateColumn("progress_percent", 100).Error)

	// Cached 0 but every lesson is done
	finisher := createUser(t, db, model.RoleStudent)
	done := createEnrollment(t, db, finisher.ID, course.ID, model.EnrollmentPaid, 10)
	for _, lesson := range lessons {
		_, err := progress.CompleteLesson(ctx, finisher.ID, lesson.ID)
		require.NoError(t, err)
	}
	require.NoError(t, db.Model(&model.Enrollment{}).
		Where("id = ?", done.ID).
		UpdateColumn("progress_percent", 0).Error)

	// An enrollment in an empty course never counts as completed
	empty := createCourse(t, db, teacher.ID, 0, true)
	idler := createUser(t, db, model.RoleStudent)
	createEnrollment(t, db, idler.ID, empty.ID, model.EnrollmentAudit, 0)

	stats, err := svc.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.CompletedCourses)
	assert.Equal(t, int64(3), stats.TotalEnrollments)
}

func TestCourseStatsCompletionFromCounts(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalyticsService(db, nil)
	progress := NewProgressService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	course := createCourse(t, db, teacher.ID, 0, true)
	lessons := createLessons(t, db, course.ID, 2)

	finisher := createUser(t, db, model.RoleStudent)
	done := createEnrollment(t, db, finisher.ID, course.ID, model.EnrollmentPaid, 10)
	for _, lesson := range lessons {
		_, err := progress.CompleteLesson(ctx, finisher.ID, lesson.ID)
		require.NoError(t, err)
	}
	require.NoError(t, db.Model(&model.Enrollment{}).
		Where("id = ?", done.ID).
		UpdateColumn("progress_percent", 0).Error)

	liar := createUser(t, db, model.RoleStudent)
	stale := createEnrollment(t, db, liar.ID, course.ID, model.EnrollmentAudit, 0)
	require.NoError(t, db.Model(&model.Enrollment{}).
		Where("id = ?", stale.ID).
		UpdateColumn("progress_percent", 100).Error)

	stats, err := svc.GetCourseStats(ctx, teacher, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalEnrollments)
	assert.Equal(t, int64(1), stats.CompletedStudents)
}

func TestCourseStatsOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := NewAnalyticsService(db, nil)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	course := createCourse(t, db, teacher.ID, 0, true)

	other := createUser(t, db, model.RoleTeacher)
	_, err := svc.GetCourseStats(ctx, other, course.ID)
	assert.ErrorIs(t, err, ErrNotCourseOwner)

	admin := createUser(t, db, model.RoleAdmin)
	stats, err := svc.GetCourseStats(ctx, admin, course.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ID, stats.CourseID)
}
