package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/pthanh137/pbl3-lms/model"
	"gorm.io/gorm"
)

// EnrollmentService owns the enrollment ledger: free enrollment, the
// purchase/upgrade resolver, dashboards, and roster management. It never
// creates a second Enrollment row for an existing (student, course) pair.
type EnrollmentService struct {
	db *gorm.DB
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{db: db}
}

// PurchaseResult reports which branch of the purchase resolver ran.
type PurchaseResult struct {
	Message         string `json:"message"`
	AlreadyEnrolled bool   `json:"already_enrolled"`
	EnrollmentType  string `json:"enrollment_type"`
	Created         bool   `json:"-"` // 201 vs 200
}

// publishedCourse loads a published course or reports ErrNotFound.
func (s *EnrollmentService) publishedCourse(ctx context.Context, courseID uint) (*model.Course, error) {
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
	return &course, nil
}

// Enroll creates a free audit enrollment for the student.
func (s *EnrollmentService) Enroll(ctx context.Context, student *model.User, courseID uint) (*model.Enrollment, error) {
	course, err := s.publishedCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if course.TeacherID == student.ID {
		return nil, ErrSelfPurchaseDenied
	}

	var enrollment model.Enrollment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where(model.Enrollment{StudentID: student.ID, CourseID: course.ID}).
			Attrs(model.Enrollment{EnrollmentType: model.EnrollmentAudit}).
			FirstOrCreate(&enrollment)
		if res.Error != nil {
			return fmt.Errorf("failed to get or create enrollment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyEnrolled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &enrollment, nil
}

// Purchase reconciles a purchase/audit request against any existing
// enrollment. Decision table, by (existing, requested):
//
//	none  + audit -> create audit row, price 0
//	none  + paid  -> create paid row at course price, payment "single"
//	audit + audit -> no-op, already enrolled
//	audit + paid  -> upgrade in place, payment "upgrade"
//	paid  + any   -> no-op, already purchased
func (s *EnrollmentService) Purchase(ctx context.Context, student *model.User, courseID uint, mode string) (*PurchaseResult, error) {
	if !student.IsStudent() {
		return nil, ErrOnlyStudents
	}

	if mode == "" {
		mode = model.EnrollmentPaid
	}
	if mode != model.EnrollmentAudit && mode != model.EnrollmentPaid {
		return nil, ErrInvalidMode
	}

	course, err := s.publishedCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if course.TeacherID == student.ID {
		return nil, ErrSelfPurchaseDenied
	}

	var result *PurchaseResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Enrollment
		found := true
		if err := tx.Where("student_id = ? AND course_id = ?", student.ID, course.ID).
			First(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to load enrollment: %w", err)
			}
			found = false
		}

		// Already paid: nothing to do regardless of the requested mode
		if found && existing.IsPaid() {
			result = &PurchaseResult{
				Message:         "Already purchased",
				AlreadyEnrolled: true,
				EnrollmentType:  model.EnrollmentPaid,
			}
			return nil
		}

		// Audit -> paid upgrade mutates the row in place
		if found && mode == model.EnrollmentPaid {
			updates := map[string]interface{}{
				"enrollment_type": model.EnrollmentPaid,
				"price_paid":      course.Price,
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to upgrade enrollment: %w", err)
			}

			payment := model.Payment{
				UserID:       student.ID,
				CourseID:     &course.ID,
				EnrollmentID: &existing.ID,
				Amount:       course.Price,
				Status:       model.PaymentSucceeded,
				Source:       model.PaymentSourceUpgrade,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return fmt.Errorf("failed to record upgrade payment: %w", err)
			}

			result = &PurchaseResult{
				Message:         "Upgraded to paid enrollment",
				AlreadyEnrolled: true,
				EnrollmentType:  model.EnrollmentPaid,
			}
			return nil
		}

		// Audit + audit: nothing to change
		if found {
			result = &PurchaseResult{
				Message:         "Already enrolled",
				AlreadyEnrolled: true,
				EnrollmentType:  model.EnrollmentAudit,
			}
			return nil
		}

		// No existing enrollment: create one in the requested mode
		enrollment := model.Enrollment{
			StudentID:      student.ID,
			CourseID:       course.ID,
			EnrollmentType: mode,
		}
		if mode == model.EnrollmentPaid {
			enrollment.PricePaid = course.Price
		}
		if err := tx.Create(&enrollment).Error; err != nil {
			return fmt.Errorf("failed to create enrollment: %w", err)
		}

		if mode == model.EnrollmentPaid {
			payment := model.Payment{
				UserID:       student.ID,
				CourseID:     &course.ID,
				EnrollmentID: &enrollment.ID,
				Amount:       enrollment.PricePaid,
				Status:       model.PaymentSucceeded,
				Source:       model.PaymentSourceSingle,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return fmt.Errorf("failed to record payment: %w", err)
			}
			result = &PurchaseResult{
				Message:        "Course purchased successfully",
				EnrollmentType: model.EnrollmentPaid,
				Created:        true,
			}
		} else {
			result = &PurchaseResult{
				Message:        "Enrolled as audit",
				EnrollmentType: model.EnrollmentAudit,
				Created:        true,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// EnrolledCourse is one row of the student dashboard.
type EnrolledCourse struct {
	CourseID                uint    `json:"course_id"`
	CourseTitle             string  `json:"course_title"`
	CourseThumbnail         string  `json:"course_thumbnail"`
	InstructorName          string  `json:"instructor_name"`
	ProgressPercent         int     `json:"progress_percent"`
	TotalLessons            int64   `json:"total_lessons"`
	CompletedLessons        int64   `json:"completed_lessons"`
	LastAccessedLessonID    *uint   `json:"last_accessed_lesson_id"`
	LastAccessedLessonTitle *string `json:"last_accessed_lesson_title"`
	Status                  string  `json:"status"` // in_progress, completed
	EnrolledAt              string  `json:"enrolled_at"`
	EnrollmentType          string  `json:"enrollment_type"`
	GrantedCertificate      bool    `json:"granted_certificate"`
}

// MyCourses returns the student's enrolled courses with progress details.
func (s *EnrollmentService) MyCourses(ctx context.Context, studentID uint) ([]EnrolledCourse, error) {
	var enrollments []model.Enrollment
	err := s.db.WithContext(ctx).
		Preload("Course").Preload("Course.Teacher").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}

	result := make([]EnrolledCourse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		total, err := CountLessons(s.db.WithContext(ctx), enrollment.CourseID)
		if err != nil {
			return nil, err
		}
		completed, err := CountCompleted(s.db.WithContext(ctx), enrollment.ID)
		if err != nil {
			return nil, err
		}

		// Completion status derives from counts, not the cached percent
		status := "in_progress"
		if total > 0 && completed >= total {
			status = "completed"
		}

		row := EnrolledCourse{
			CourseID:           enrollment.CourseID,
			CourseTitle:        enrollment.Course.Title,
			CourseThumbnail:    enrollment.Course.ThumbnailURL,
			InstructorName:     enrollment.Course.Teacher.DisplayName(),
			ProgressPercent:    enrollment.ProgressPercent,
			TotalLessons:       total,
			CompletedLessons:   completed,
			Status:             status,
			EnrolledAt:         enrollment.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			EnrollmentType:     enrollment.EnrollmentType,
			GrantedCertificate: enrollment.GrantedCertificate,
		}

		var last model.LessonProgress
		err = s.db.WithContext(ctx).Preload("Lesson").
			Where("enrollment_id = ?", enrollment.ID).
			Order("completed_at DESC NULLS LAST, id DESC").
			First(&last).Error
		if err == nil {
			row.LastAccessedLessonID = &last.LessonID
			row.LastAccessedLessonTitle = &last.Lesson.Title
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load last accessed lesson: %w", err)
		}

		result = append(result, row)
	}

	return result, nil
}

// ListMine returns the student's raw enrollment rows with course preloaded.
func (s *EnrollmentService) ListMine(ctx context.Context, studentID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := s.db.WithContext(ctx).
		Preload("Course").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}
	return enrollments, nil
}

// StudentInCourse is one row of the teacher's roster view.
type StudentInCourse struct {
	StudentID        uint    `json:"student_id"`
	FullName         string  `json:"full_name"`
	Email            string  `json:"email"`
	AvatarURL        string  `json:"avatar_url"`
	EnrolledAt       string  `json:"enrolled_at"`
	EnrollmentType   string  `json:"enrollment_type"`
	PricePaid        float64 `json:"price_paid"`
	TotalLessons     int64   `json:"total_lessons"`
	CompletedLessons int64   `json:"completed_lessons"`
	ProgressPercent  int     `json:"progress_percent"`
}

// RosterOptions filters the roster view.
type RosterOptions struct {
	Search string // matches name or email
	Status string // "", "completed", "in_progress"
}

// CourseStudents lists the students enrolled in a teacher's course.
func (s *EnrollmentService) CourseStudents(ctx context.Context, teacher *model.User, courseID uint, opts RosterOptions) ([]StudentInCourse, error) {
	var course model.Course
	if err := s.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load course: %w", err)
	}
	if course.TeacherID != teacher.ID && !teacher.IsAdmin() {
		return nil, ErrNotCourseOwner
	}

	query := s.db.WithContext(ctx).
		Preload("Student").
		Joins("JOIN users ON users.id = enrollments.student_id").
		Where("enrollments.course_id = ?", courseID)
	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		query = query.Where("users.full_name ILIKE ? OR users.email ILIKE ?", pattern, pattern)
	}

	var enrollments []model.Enrollment
	if err := query.Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}

	total, err := CountLessons(s.db.WithContext(ctx), courseID)
	if err != nil {
		return nil, err
	}

	roster := make([]StudentInCourse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		completed, err := CountCompleted(s.db.WithContext(ctx), enrollment.ID)
		if err != nil {
			return nil, err
		}

		finished := total > 0 && completed >= total
		if opts.Status == "completed" && !finished {
			continue
		}
		if opts.Status == "in_progress" && finished {
			continue
		}

		roster = append(roster, StudentInCourse{
			StudentID:        enrollment.StudentID,
			FullName:         enrollment.Student.FullName,
			Email:            enrollment.Student.Email,
			AvatarURL:        enrollment.Student.AvatarURL,
			EnrolledAt:       enrollment.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			EnrollmentType:   enrollment.EnrollmentType,
			PricePaid:        enrollment.PricePaid,
			TotalLessons:     total,
			CompletedLessons: completed,
			ProgressPercent:  ComputePercent(completed, total),
		})
	}

	return roster, nil
}

// RemoveStudent deletes a student's enrollment and all dependent progress
// rows. Only the course owner (or an admin) may do this.
func (s *EnrollmentService) RemoveStudent(ctx context.Context, teacher *model.User, courseID, studentID uint) error {
	var course model.Course
	if err := s.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load course: %w", err)
	}
	if course.TeacherID != teacher.ID && !teacher.IsAdmin() {
		return ErrNotCourseOwner
	}

	var enrollment model.Enrollment
	err := s.db.WithContext(ctx).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load enrollment: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("enrollment_id = ?", enrollment.ID).
			Delete(&model.LessonProgress{}).Error; err != nil {
			return fmt.Errorf("failed to delete lesson progress: %w", err)
		}
		if err := tx.Delete(&enrollment).Error; err != nil {
			return fmt.Errorf("failed to delete enrollment: %w", err)
		}
		return nil
	})
}
