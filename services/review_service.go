package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/pthanh137/pbl3-lms/model"
	"gorm.io/gorm"
)

// ReviewService manages course reviews. A student must be enrolled to
// review, and holds at most one review per course.
type ReviewService struct {
	db *gorm.DB
}

// NewReviewService creates a new review service
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// RatingSummary aggregates a course's reviews.
type RatingSummary struct {
	CourseID    uint    `json:"course_id"`
	AvgRating   float64 `json:"avg_rating"`
	ReviewCount int64   `json:"review_count"`
}

// Upsert creates the student's review for a course or replaces the
// existing one.
func (s *ReviewService) Upsert(ctx context.Context, student *model.User, courseID uint, rating int, comment string) (*model.CourseReview, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	var enrolled int64
	err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ?", student.ID, courseID).
		Count(&enrolled).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled == 0 {
		return nil, ErrNotEnrolled
	}

	review := model.CourseReview{
		CourseID: courseID,
		UserID:   student.ID,
	}
	err = s.db.WithContext(ctx).
		Where(model.CourseReview{CourseID: courseID, UserID: student.ID}).
		Assign(map[string]interface{}{"rating": rating, "comment": comment}).
		FirstOrCreate(&review).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}
	review.Rating = rating
	review.Comment = comment

	return &review, nil
}

// ListForCourse returns a course's reviews newest first, with the author
// preloaded for display.
func (s *ReviewService) ListForCourse(ctx context.Context, courseID uint, limit, offset int) ([]model.CourseReview, int64, error) {
	var total int64
	query := s.db.WithContext(ctx).Model(&model.CourseReview{}).
		Where("course_id = ?", courseID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}

	if limit <= 0 {
		limit = 20
	}

	var reviews []model.CourseReview
	err := s.db.WithContext(ctx).Preload("User").
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load reviews: %w", err)
	}

	return reviews, total, nil
}

// Summary returns the course's average rating and review count.
func (s *ReviewService) Summary(ctx context.Context, courseID uint) (*RatingSummary, error) {
	summary := &RatingSummary{CourseID: courseID}

	var result struct {
		Avg   float64
		Count int64
	}
	err := s.db.WithContext(ctx).Model(&model.CourseReview{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(AVG(rating), 0) as avg, COUNT(*) as count").
		Scan(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reviews: %w", err)
	}
	summary.AvgRating = result.Avg
	summary.ReviewCount = result.Count

	return summary, nil
}

// Delete removes the student's own review.
func (s *ReviewService) Delete(ctx context.Context, userID, courseID uint) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&model.CourseReview{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete review: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetMine returns the student's review for a course, nil when absent.
func (s *ReviewService) GetMine(ctx context.Context, userID, courseID uint) (*model.CourseReview, error) {
	var review model.CourseReview
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load review: %w", err)
	}
	return &review, nil
}
