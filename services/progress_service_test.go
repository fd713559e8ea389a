package services

import (
	"context"
	"sync"
	"testing"

	"github.com/pthanh137/pbl3-lms/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePercent(t *testing.T) {
	tests := []struct {
		name      string
		completed int64
		total     int64
		want      int
	}{
		{"no lessons", 0, 0, 0},
		{"nothing completed", 0, 10, 0},
		{"one of three floors down", 1, 3, 33},
		{"two of three floors down", 2, 3, 66},
		{"half", 5, 10, 50},
		{"all completed", 10, 10, 100},
		{"single lesson course", 1, 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputePercent(tt.completed, tt.total))
		})
	}
}

func TestCompleteLessonProgression(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 49.99, true)
	lessons := createLessons(t, db, course.ID, 4)
	enrollment := createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	want := []int{25, 50, 75, 100}
	for i, lesson := range lessons {
		result, err := svc.CompleteLesson(ctx, student.ID, lesson.ID)
		require.NoError(t, err)
		assert.Equal(t, want[i], result.ProgressPercent)
	}

	var reloaded model.Enrollment
	require.NoError(t, db.First(&reloaded, enrollment.ID).Error)
	assert.Equal(t, 100, reloaded.ProgressPercent)
}

func TestCompleteLessonIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	lessons := createLessons(t, db, course.ID, 2)
	enrollment := createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	first, err := svc.CompleteLesson(ctx, student.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 50, first.ProgressPercent)

	var original model.LessonProgress
	require.NoError(t, db.Where("enrollment_id = ? AND lesson_id = ?", enrollment.ID, lessons[0].ID).
		First(&original).Error)
	require.NotNil(t, original.CompletedAt)

	// Completing the same lesson again changes nothing
	second, err := svc.CompleteLesson(ctx, student.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 50, second.ProgressPercent)

	var count int64
	require.NoError(t, db.Model(&model.LessonProgress{}).
		Where("enrollment_id = ?", enrollment.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var replay model.LessonProgress
	require.NoError(t, db.First(&replay, original.ID).Error)
	assert.True(t, replay.IsCompleted)
	require.NotNil(t, replay.CompletedAt)
	assert.Equal(t, original.CompletedAt.Unix(), replay.CompletedAt.Unix())
}

func TestCompleteLessonErrors(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	lessons := createLessons(t, db, course.ID, 1)

	t.Run("unknown lesson", func(t *testing.T) {
		_, err := svc.CompleteLesson(ctx, student.ID, 99999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("not enrolled", func(t *testing.T) {
		_, err := svc.CompleteLesson(ctx, student.ID, lessons[0].ID)
		assert.ErrorIs(t, err, ErrNotEnrolled)
	})
}

func TestRecalculateHealsDrift(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	lessons := createLessons(t, db, course.ID, 2)
	enrollment := createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	_, err := svc.CompleteLesson(ctx, student.ID, lessons[0].ID)
	require.NoError(t, err)

	// Corrupt the cached percent; the next recompute must repair it
	require.NoError(t, db.Model(enrollment).UpdateColumn("progress_percent", 77).Error)

	percent, err := svc.Recalculate(db, enrollment)
	require.NoError(t, err)
	assert.Equal(t, 50, percent)

	var reloaded model.Enrollment
	require.NoError(t, db.First(&reloaded, enrollment.ID).Error)
	assert.Equal(t, 50, reloaded.ProgressPercent)
}

func TestRecalculateAfterCourseGrows(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	lessons := createLessons(t, db, course.ID, 2)
	enrollment := createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	for _, lesson := range lessons {
		_, err := svc.CompleteLesson(ctx, student.ID, lesson.ID)
		require.NoError(t, err)
	}
	require.NoError(t, db.First(enrollment, enrollment.ID).Error)
	require.Equal(t, 100, enrollment.ProgressPercent)

	// New content lowers the percentage on the next recompute
	var section model.Section
	require.NoError(t, db.Where("course_id = ?", course.ID).First(&section).Error)
	require.NoError(t, db.Create(&model.Lesson{
		SectionID: section.ID,
		Title:     "Lesson 3",
		SortOrder: 3,
	}).Error)

	percent, err := svc.Recalculate(db, enrollment)
	require.NoError(t, err)
	assert.Equal(t, 66, percent)
}

func TestRecalculateEmptyCourse(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	enrollment := createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	percent, err := svc.Recalculate(db, enrollment)
	require.NoError(t, err)
	assert.Equal(t, 0, percent)
}

// Two first-completions racing for the same lesson must both succeed;
// the unique (enrollment, lesson) index makes the loser retry onto the
// idempotent path instead of surfacing an error.
func TestCompleteLessonConcurrent(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	lessons := createLessons(t, db, course.ID, 2)
	enrollment := createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CompleteLesson(ctx, student.ID, lessons[0].ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var rows int64
	require.NoError(t, db.Model(&model.LessonProgress{}).
		Where("enrollment_id = ? AND lesson_id = ?", enrollment.ID, lessons[0].ID).
		Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	require.NoError(t, db.First(enrollment, enrollment.ID).Error)
	assert.Equal(t, 50, enrollment.ProgressPercent)
}

// A progress row inserted by a concurrent winner before the flag update
// is picked up, not duplicated.
func TestCompleteLessonExistingBareRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	lessons := createLessons(t, db, course.ID, 1)
	enrollment := createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	require.NoError(t, db.Create(&model.LessonProgress{
		EnrollmentID: enrollment.ID,
		LessonID:     lessons[0].ID,
	}).Error)

	result, err := svc.CompleteLesson(ctx, student.ID, lessons[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 100, result.ProgressPercent)

	var rows int64
	require.NoError(t, db.Model(&model.LessonProgress{}).
		Where("enrollment_id = ?", enrollment.ID).
		Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}
