package services

import (
	"context"
	"testing"

	"github.com/pthanh137/pbl3-lms/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewUpsert(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)

	t.Run("requires enrollment", func(t *testing.T) {
		_, err := svc.Upsert(ctx, student, course.ID, 5, "great")
		assert.ErrorIs(t, err, ErrNotEnrolled)
	})

	createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	t.Run("rating bounds", func(t *testing.T) {
		_, err := svc.Upsert(ctx, student, course.ID, 0, "")
		assert.ErrorIs(t, err, ErrInvalidRating)
		_, err = svc.Upsert(ctx, student, course.ID, 6, "")
		assert.ErrorIs(t, err, ErrInvalidRating)
	})

	review, err := svc.Upsert(ctx, student, course.ID, 4, "solid")
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)

	t.Run("second upsert replaces, never duplicates", func(t *testing.T) {
		updated, err := svc.Upsert(ctx, student, course.ID, 2, "changed my mind")
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Rating)

		var count int64
		require.NoError(t, db.Model(&model.CourseReview{}).
			Where("course_id = ?", course.ID).
			Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestReviewSummary(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	course := createCourse(t, db, teacher.ID, 0, true)

	t.Run("no reviews", func(t *testing.T) {
		summary, err := svc.Summary(ctx, course.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), summary.ReviewCount)
		assert.Equal(t, float64(0), summary.AvgRating)
	})

	ratings := []int{5, 4, 3}
	for _, rating := range ratings {
		student := createUser(t, db, model.RoleStudent)
		createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)
		_, err := svc.Upsert(ctx, student, course.ID, rating, "")
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.ReviewCount)
	assert.InDelta(t, 4.0, summary.AvgRating, 0.001)
}

func TestReviewDeleteAndGetMine(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 0, true)
	createEnrollment(t, db, student.ID, course.ID, model.EnrollmentAudit, 0)

	_, err := svc.Upsert(ctx, student, course.ID, 5, "")
	require.NoError(t, err)

	mine, err := svc.GetMine(ctx, student.ID, course.ID)
	require.NoError(t, err)
	require.NotNil(t, mine)
	assert.Equal(t, 5, mine.Rating)

	require.NoError(t, svc.Delete(ctx, student.ID, course.ID))

	mine, err = svc.GetMine(ctx, student.ID, course.ID)
	require.NoError(t, err)
	assert.Nil(t, mine)

	assert.ErrorIs(t, svc.Delete(ctx, student.ID, course.ID), ErrNotFound)
}
