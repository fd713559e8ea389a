package services

import (
	"context"
	"testing"

	"github.com/pthanh137/pbl3-lms/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartAdd(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 39.99, true)

	item, err := svc.Add(ctx, student, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 39.99, item.PriceAtAdd)

	t.Run("adding twice keeps one item", func(t *testing.T) {
		_, err := svc.Add(ctx, student, course.ID)
		require.NoError(t, err)

		summary, err := svc.List(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Count)
		assert.Equal(t, 39.99, summary.Total)
	})

	t.Run("price is captured at add time", func(t *testing.T) {
		require.NoError(t, db.Model(course).UpdateColumn("price", 59.99).Error)

		summary, err := svc.List(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, 39.99, summary.Total)
	})

	t.Run("own course refused", func(t *testing.T) {
		own := createCourse(t, db, student.ID, 5, true)
		_, err := svc.Add(ctx, student, own.ID)
		assert.ErrorIs(t, err, ErrSelfPurchaseDenied)
	})

	t.Run("already owned refused", func(t *testing.T) {
		owned := createCourse(t, db, teacher.ID, 5, true)
		createEnrollment(t, db, student.ID, owned.ID, model.EnrollmentPaid, 5)
		_, err := svc.Add(ctx, student, owned.ID)
		assert.ErrorIs(t, err, ErrAlreadyOwned)
	})

	t.Run("audit enrollment may still be added", func(t *testing.T) {
		auditing := createCourse(t, db, teacher.ID, 15, true)
		createEnrollment(t, db, student.ID, auditing.ID, model.EnrollmentAudit, 0)
		_, err := svc.Add(ctx, student, auditing.ID)
		assert.NoError(t, err)
	})

	t.Run("non-student refused", func(t *testing.T) {
		_, err := svc.Add(ctx, teacher, course.ID)
		assert.ErrorIs(t, err, ErrOnlyStudents)
	})
}

func TestCartRemove(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)
	course := createCourse(t, db, teacher.ID, 10, true)

	_, err := svc.Add(ctx, student, course.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, student.ID, course.ID))
	assert.ErrorIs(t, svc.Remove(ctx, student.ID, course.ID), ErrNotFound)
}

func TestCartCheckout(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db)
	ctx := context.Background()

	teacher := createUser(t, db, model.RoleTeacher)
	student := createUser(t, db, model.RoleStudent)

	fresh := createCourse(t, db, teacher.ID, 10, true)
	audited := createCourse(t, db, teacher.ID, 20, true)
	createEnrollment(t, db, student.ID, audited.ID, model.EnrollmentAudit, 0)

	for _, course := range []*model.Course{fresh, audited} {
		_, err := svc.Add(ctx, student, course.ID)
		require.NoError(t, err)
	}

	// A paid enrollment that appeared after the item was added is
	// skipped, not double charged
	raced := createCourse(t, db, teacher.ID, 30, true)
	_, err := svc.Add(ctx, student, raced.ID)
	require.NoError(t, err)
	createEnrollment(t, db, student.ID, raced.ID, model.EnrollmentPaid, 30)

	result, err := svc.Checkout(ctx, student)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{fresh.ID, audited.ID}, result.PurchasedCourseIDs)
	assert.Equal(t, float64(30), result.TotalCharged)
	assert.Len(t, result.PaymentReferences, 2)

	var upgraded model.Enrollment
	require.NoError(t, db.Where("student_id = ? AND course_id = ?", student.ID, audited.ID).
		First(&upgraded).Error)
	assert.Equal(t, model.EnrollmentPaid, upgraded.EnrollmentType)
	assert.Equal(t, float64(20), upgraded.PricePaid)

	var payments int64
	require.NoError(t, db.Model(&model.Payment{}).
		Where("user_id = ? AND source = ?", student.ID, model.PaymentSourceCart).
		Count(&payments).Error)
	assert.Equal(t, int64(2), payments)

	// Cart is emptied, replaying checkout fails
	summary, err := svc.List(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Count)

	_, err = svc.Checkout(ctx, student)
	assert.ErrorIs(t, err, ErrEmptyCart)
}
