package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/pthanh137/pbl3-lms/model"
	"gorm.io/gorm"
)

// CartService manages the purchase cart. Checkout is the cart-sourced
// counterpart to EnrollmentService.Purchase and reuses the same
// upgrade-in-place rules per course.
type CartService struct {
	db *gorm.DB
}

// NewCartService creates a new cart service
func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// CartSummary is the cart list response.
type CartSummary struct {
	Items []model.CartItem `json:"items"`
	Count int              `json:"count"`
	Total float64          `json:"total"`
}

// CheckoutResult summarizes a completed checkout.
type CheckoutResult struct {
	PurchasedCourseIDs []uint   `json:"purchased_course_ids"`
	TotalCharged       float64  `json:"total_charged"`
	PaymentReferences  []string `json:"payment_references"`
}

// Add puts a published course into the student's cart. Paid ownership and
// own-course rules are enforced here so checkout never has to refuse an
// item the student was allowed to add.
func (s *CartService) Add(ctx context.Context, student *model.User, courseID uint) (*model.CartItem, error) {
	if !student.IsStudent() {
		return nil, ErrOnlyStudents
	}

	var course model.Course
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_published = ?", courseID, true).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load course: %w", err)
	}
	if course.TeacherID == student.ID {
		return nil, ErrSelfPurchaseDenied
	}

	var paid int64
	err = s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ? AND enrollment_type = ?",
			student.ID, courseID, model.EnrollmentPaid).
		Count(&paid).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if paid > 0 {
		return nil, ErrAlreadyOwned
	}

	item := model.CartItem{
		UserID:     student.ID,
		CourseID:   course.ID,
		PriceAtAdd: course.Price,
	}
	result := s.db.WithContext(ctx).
		Where(model.CartItem{UserID: student.ID, CourseID: course.ID}).
		FirstOrCreate(&item)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", result.Error)
	}
	item.Course = course

	return &item, nil
}

// List returns the student's cart with the running total.
func (s *CartService) List(ctx context.Context, userID uint) (*CartSummary, error) {
	var items []model.CartItem
	err := s.db.WithContext(ctx).Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	summary := &CartSummary{Items: items, Count: len(items)}
	for _, item := range items {
		summary.Total += item.PriceAtAdd
	}

	return summary, nil
}

// Remove deletes one course from the student's cart.
func (s *CartService) Remove(ctx context.Context, userID, courseID uint) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove cart item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Checkout converts every cart item into a paid enrollment and a payment
// row, then empties the cart. Items the student became paid-enrolled in
// since adding are skipped rather than double charged; existing audit
// enrollments are upgraded in place. The whole checkout is one
// transaction.
func (s *CartService) Checkout(ctx context.Context, student *model.User) (*CheckoutResult, error) {
	if !student.IsStudent() {
		return nil, ErrOnlyStudents
	}

	var items []model.CartItem
	err := s.db.WithContext(ctx).Preload("Course").
		Where("user_id = ?", student.ID).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	result := &CheckoutResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			var enrollment model.Enrollment
			err := tx.Where("student_id = ? AND course_id = ?", student.ID, item.CourseID).
				First(&enrollment).Error
			switch {
			case err == nil && enrollment.IsPaid():
				continue
			case err == nil:
				updates := map[string]interface{}{
					"enrollment_type": model.EnrollmentPaid,
					"price_paid":      item.PriceAtAdd,
				}
				if err := tx.Model(&enrollment).Updates(updates).Error; err != nil {
					return fmt.Errorf("failed to upgrade enrollment: %w", err)
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				enrollment = model.Enrollment{
					StudentID:      student.ID,
					CourseID:       item.CourseID,
					EnrollmentType: model.EnrollmentPaid,
					PricePaid:      item.PriceAtAdd,
				}
				if err := tx.Create(&enrollment).Error; err != nil {
					return fmt.Errorf("failed to create enrollment: %w", err)
				}
			default:
				return fmt.Errorf("failed to load enrollment: %w", err)
			}

			courseID := item.CourseID
			payment := model.Payment{
				UserID:       student.ID,
				CourseID:     &courseID,
				EnrollmentID: &enrollment.ID,
				Amount:       item.PriceAtAdd,
				Status:       model.PaymentSucceeded,
				Source:       model.PaymentSourceCart,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return fmt.Errorf("failed to record payment: %w", err)
			}

			result.PurchasedCourseIDs = append(result.PurchasedCourseIDs, item.CourseID)
			result.TotalCharged += item.PriceAtAdd
			result.PaymentReferences = append(result.PaymentReferences, payment.ReferenceCode)
		}

		if err := tx.Where("user_id = ?", student.ID).Delete(&model.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
