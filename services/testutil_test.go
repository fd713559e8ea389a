package services

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pthanh137/pbl3-lms/database"
	"github.com/pthanh137/pbl3-lms/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var userSeq atomic.Uint64

// newTestDB opens an isolated in-memory SQLite database with the full
// schema. Single connection, otherwise the pool would hand out empty
// in-memory databases.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))

	return db
}

func createUser(t *testing.T, db *gorm.DB, role string) *model.User {
	t.Helper()

	user := model.User{
		Email:        fmt.Sprintf("user%d@example.com", userSeq.Add(1)),
		PasswordHash: "not-a-real-hash",
		FullName:     "Test " + role,
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)

	return &user
}

func createCourse(t *testing.T, db *gorm.DB, teacherID uint, price float64, published bool) *model.Course {
	t.Helper()

	course := model.Course{
		TeacherID:   teacherID,
		Title:       "Test Course",
		Price:       price,
		IsPublished: published,
	}
	require.NoError(t, db.Create(&course).Error)

	return &course
}

// createLessons adds one section with n lessons to the course.
func createLessons(t *testing.T, db *gorm.DB, courseID uint, n int) []model.Lesson {
	t.Helper()

	section := model.Section{CourseID: courseID, Title: "Section 1", SortOrder: 1}
	require.NoError(t, db.Create(&section).Error)

	lessons := make([]model.Lesson, 0, n)
	for i := 1; i <= n; i++ {
		lesson := model.Lesson{
			SectionID: section.ID,
			Title:     fmt.Sprintf("Lesson %d", i),
			SortOrder: uint(i),
		}
		require.NoError(t, db.Create(&lesson).Error)
		lessons = append(lessons, lesson)
	}

	return lessons
}

func createEnrollment(t *testing.T, db *gorm.DB, studentID, courseID uint, enrollmentType string, pricePaid float64) *model.Enrollment {
	t.Helper()

	enrollment := model.Enrollment{
		StudentID:      studentID,
		CourseID:       courseID,
		EnrollmentType: enrollmentType,
		PricePaid:      pricePaid,
	}
	require.NoError(t, db.Create(&enrollment).Error)

	return &enrollment
}
