package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pthanh137/pbl3-lms/model"
	"gorm.io/gorm"
)

// CertificateService gates and mints completion certificates for paid
// enrollments. Per (user, course) the only transition is
// NoCertificate -> Issued; certificates are never revoked here.
type CertificateService struct {
	db *gorm.DB
}

// NewCertificateService creates a new certificate service
func NewCertificateService(db *gorm.DB) *CertificateService {
	return &CertificateService{db: db}
}

// CertificatePayload is the user-facing certificate record.
type CertificatePayload struct {
	CertificateID   uint      `json:"certificate_id"`
	CertificateCode string    `json:"certificate_code"`
	CourseID        uint      `json:"course_id"`
	CourseTitle     string    `json:"course_title"`
	IssuedAt        time.Time `json:"issued_at"`
	StudentName     string    `json:"student_name"`
	AlreadyIssued   bool      `json:"-"` // 200 vs 201
}

// NewCertificateCode returns a fresh 32-char opaque code. Collisions are
// caught by the unique constraint, not checked here.
func NewCertificateCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Issue mints a certificate when the student's paid enrollment has every
// lesson completed. Re-requesting returns the existing certificate
// unchanged. Eligibility failures are distinct errors so the client can
// render them differently.
func (s *CertificateService) Issue(ctx context.Context, student *model.User, courseID uint) (*CertificatePayload, error) {
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

	// Idempotency first: an existing certificate is returned as-is
	var existing model.Certificate
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", student.ID, courseID).
		First(&existing).Error
	if err == nil {
		return &CertificatePayload{
			CertificateID:   existing.ID,
			CertificateCode: existing.CertificateCode,
			CourseID:        course.ID,
			CourseTitle:     course.Title,
			IssuedAt:        existing.IssuedAt,
			StudentName:     student.DisplayName(),
			AlreadyIssued:   true,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing certificate: %w", err)
	}

	var enrollment model.Enrollment
	err = s.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND enrollment_type = ?",
			student.ID, courseID, model.EnrollmentPaid).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotPaidEnrollment
		}
		return nil, fmt.Errorf("failed to load enrollment: %w", err)
	}

	// Eligibility derives from counts, never from the cached percent
	total, err := CountLessons(s.db.WithContext(ctx), courseID)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, ErrNoLessons
	}

	completed, err := CountCompleted(s.db.WithContext(ctx), enrollment.ID)
	if err != nil {
		return nil, err
	}
	if completed < total {
		return nil, ErrNotCompleted
	}

	certificate := model.Certificate{
		UserID:          student.ID,
		CourseID:        course.ID,
		EnrollmentID:    enrollment.ID,
		CertificateCode: NewCertificateCode(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&certificate).Error; err != nil {
			return fmt.Errorf("failed to create certificate: %w", err)
		}
		if err := tx.Model(&enrollment).
			UpdateColumn("granted_certificate", true).Error; err != nil {
			return fmt.Errorf("failed to flag enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CertificatePayload{
		CertificateID:   certificate.ID,
		CertificateCode: certificate.CertificateCode,
		CourseID:        course.ID,
		CourseTitle:     course.Title,
		IssuedAt:        certificate.IssuedAt,
		StudentName:     student.DisplayName(),
	}, nil
}

// GetForCourse returns the student's certificate for a course.
func (s *CertificateService) GetForCourse(ctx context.Context, student *model.User, courseID uint) (*CertificatePayload, error) {
	var certificate model.Certificate
	err := s.db.WithContext(ctx).Preload("Course").
		Where("user_id = ? AND course_id = ?", student.ID, courseID).
		First(&certificate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	return &CertificatePayload{
		CertificateID:   certificate.ID,
		CertificateCode: certificate.CertificateCode,
		CourseID:        certificate.CourseID,
		CourseTitle:     certificate.Course.Title,
		IssuedAt:        certificate.IssuedAt,
		StudentName:     student.DisplayName(),
		AlreadyIssued:   true,
	}, nil
}

// ListMine returns all of the student's certificates, newest first.
func (s *CertificateService) ListMine(ctx context.Context, student *model.User) ([]CertificatePayload, error) {
	var certificates []model.Certificate
	err := s.db.WithContext(ctx).Preload("Course").
		Where("user_id = ?", student.ID).
		Order("issued_at DESC").
		Find(&certificates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load certificates: %w", err)
	}

	result := make([]CertificatePayload, 0, len(certificates))
	for _, certificate := range certificates {
		result = append(result, CertificatePayload{
			CertificateID:   certificate.ID,
			CertificateCode: certificate.CertificateCode,
			CourseID:        certificate.CourseID,
			CourseTitle:     certificate.Course.Title,
			IssuedAt:        certificate.IssuedAt,
			StudentName:     student.DisplayName(),
			AlreadyIssued:   true,
		})
	}

	return result, nil
}
