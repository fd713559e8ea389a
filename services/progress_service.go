package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pthanh137/pbl3-lms/model"
	"gorm.io/gorm"
)

// ProgressService tracks lesson completion and keeps the cached
// progress_percent on each enrollment in sync with the completion rows.
type ProgressService struct {
	db *gorm.DB
}

// NewProgressService creates a new progress service
func NewProgressService(db *gorm.DB) *ProgressService {
	return &ProgressService{db: db}
}

// CompletionResult is returned by CompleteLesson.
type CompletionResult struct {
	LessonID        uint `json:"lesson_id"`
	Completed       bool `json:"completed"`
	ProgressPercent int  `json:"progress_percent"`
}

// CountLessons returns the number of lessons in a course.
func CountLessons(db *gorm.DB, courseID uint) (int64, error) {
	var total int64
	err := db.Model(&model.Lesson{}).
		Joins("JOIN sections ON sections.id = lessons.section_id AND sections.deleted_at IS NULL").
		Where("sections.course_id = ?", courseID).
		Count(&total).Error
	return total, err
}

// CountCompleted returns the number of completed lessons for an enrollment.
func CountCompleted(db *gorm.DB, enrollmentID uint) (int64, error) {
	var completed int64
	err := db.Model(&model.LessonProgress{}).
		Where("enrollment_id = ? AND is_completed = ?", enrollmentID, true).
		Count(&completed).Error
	return completed, err
}

// ComputePercent derives the integer progress percentage. A course with
// zero lessons always yields 0.
func ComputePercent(completed, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(completed * 100 / total)
}

// Recalculate recomputes the enrollment's progress percentage from the
// completion rows and persists it. It is always a full recompute, never an
// increment, so a stale cached value self-heals on the next call.
func (s *ProgressService) Recalculate(db *gorm.DB, enrollment *model.Enrollment) (int, error) {
	total, err := CountLessons(db, enrollment.CourseID)
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}

	completed, err := CountCompleted(db, enrollment.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed lessons: %w", err)
	}

	percent := ComputePercent(completed, total)
	if err := db.Model(enrollment).UpdateColumn("progress_percent", percent).Error; err != nil {
		return 0, fmt.Errorf("failed to persist progress: %w", err)
	}
	enrollment.ProgressPercent = percent

	return percent, nil
}

// CompleteLesson records that the student finished the lesson. The
// completion row is created lazily and flipped at most once; repeated
// calls are no-ops apart from the recompute. The whole operation runs in
// one transaction so concurrent calls for the same (student, lesson) pair
// cannot violate the uniqueness invariant.
func (s *ProgressService) CompleteLesson(ctx context.Context, studentID, lessonID uint) (*CompletionResult, error) {
	var lesson model.Lesson
	if err := s.db.WithContext(ctx).Preload("Section").First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load lesson: %w", err)
	}

	var enrollment model.Enrollment
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, lesson.Section.CourseID).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("failed to load enrollment: %w", err)
	}

	result := &CompletionResult{LessonID: lesson.ID, Completed: true}

	err = s.completeTx(ctx, &enrollment, &lesson, result)
	if err != nil {
		// Two first-completions can race past FirstOrCreate; the loser's
		// insert then trips the unique (enrollment, lesson) index and
		// aborts its transaction. If the row exists now, a second pass
		// takes the idempotent path.
		var exists int64
		checkErr := s.db.WithContext(ctx).Model(&model.LessonProgress{}).
			Where("enrollment_id = ? AND lesson_id = ?", enrollment.ID, lesson.ID).
			Count(&exists).Error
		if checkErr != nil || exists == 0 {
			return nil, err
		}
		if err = s.completeTx(ctx, &enrollment, &lesson, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// completeTx is one attempt at the completion transaction: get-or-create
// the progress row, flip it at most once, recompute the percentage.
func (s *ProgressService) completeTx(ctx context.Context, enrollment *model.Enrollment, lesson *model.Lesson, result *CompletionResult) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		progress := model.LessonProgress{
			EnrollmentID: enrollment.ID,
			LessonID:     lesson.ID,
		}
		if err := tx.Where(model.LessonProgress{
			EnrollmentID: enrollment.ID,
			LessonID:     lesson.ID,
		}).FirstOrCreate(&progress).Error; err != nil {
			return fmt.Errorf("failed to get or create lesson progress: %w", err)
		}

		if !progress.IsCompleted {
			now := time.Now()
			if err := tx.Model(&progress).Updates(map[string]interface{}{
				"is_completed": true,
				"completed_at": now,
			}).Error; err != nil {
				return fmt.Errorf("failed to mark lesson completed: %w", err)
			}
		}

		// Recompute even on the idempotent path so any drift between the
		// cached percent and the completion rows heals here.
		percent, err := s.Recalculate(tx, enrollment)
		if err != nil {
			return err
		}
		result.ProgressPercent = percent

		return nil
	})
}
