package certificate

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/model"
	"github.com/pthanh137/pbl3-lms/services"
	"github.com/pthanh137/pbl3-lms/services/email"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/response"
	"gorm.io/gorm"
)

// CertificateHandler handles certificate issuance and lookup
type CertificateHandler struct {
	db            *gorm.DB
	certificates  *services.CertificateService
	notifications *services.NotificationService
	mailer        email.Mailer
}

// NewCertificateHandler creates a new certificate handler
func NewCertificateHandler(db *gorm.DB, certificates *services.CertificateService, notifications *services.NotificationService, mailer email.Mailer) *CertificateHandler {
	return &CertificateHandler{
		db:            db,
		certificates:  certificates,
		notifications: notifications,
		mailer:        mailer,
	}
}

// Issue handles POST /api/v1/courses/:id/certificate. Each ineligibility
// reason maps to its own code so the client can tell "upgrade to paid"
// apart from "keep studying".
func (h *CertificateHandler) Issue(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	payload, err := h.certificates.Issue(c.Context(), user, uint(courseID))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return response.NotFound(c, "Course not found")
		case errors.Is(err, services.ErrOnlyStudents):
			return response.Error(c, fiber.StatusForbidden, "Only students can request certificates", "ONLY_STUDENTS")
		case errors.Is(err, services.ErrNotPaidEnrollment):
			return response.BadRequestWithCode(c, "Certificates require a paid enrollment", "NOT_PAID_ENROLLMENT")
		case errors.Is(err, services.ErrNoLessons):
			return response.BadRequestWithCode(c, "Course has no lessons", "NO_LESSONS")
		case errors.Is(err, services.ErrNotCompleted):
			return response.BadRequestWithCode(c, "Complete all lessons to earn the certificate", "NOT_COMPLETED")
		default:
			return response.InternalServerError(c, "Failed to issue certificate")
		}
	}

	if payload.AlreadyIssued {
		return response.Success(c, payload)
	}

	var course model.Course
	if err := h.db.First(&course, courseID).Error; err == nil {
		h.notifications.NotifyCertificate(c.Context(), user.ID, &course, payload.CertificateCode)
	}
	go h.mailer.Send(email.CertificateIssued(user.DisplayName(), user.Email, payload.CourseTitle, payload.CertificateCode))

	return response.Created(c, payload)
}

// GetForCourse handles GET /api/v1/courses/:id/certificate.
func (h *CertificateHandler) GetForCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	payload, err := h.certificates.GetForCourse(c.Context(), user, uint(courseID))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return response.NotFound(c, "Certificate not found")
		}
		return response.InternalServerError(c, "Failed to load certificate")
	}

	return response.Success(c, payload)
}

// ListMine handles GET /api/v1/me/certificates.
func (h *CertificateHandler) ListMine(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	payloads, err := h.certificates.ListMine(c.Context(), user)
	if err != nil {
		return response.InternalServerError(c, "Failed to load certificates")
	}

	return response.Success(c, payloads)
}

// Verify handles GET /api/v1/certificates/:code/verify, a public
// endpoint employers can use to check a certificate code.
func (h *CertificateHandler) Verify(c *fiber.Ctx) error {
	code := c.Params("code")
	if code == "" {
		return response.BadRequest(c, "Certificate code is required")
	}

	var certificate model.Certificate
	err := h.db.Preload("Course").Preload("User").
		Where("certificate_code = ?", code).
		First(&certificate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Certificate not found")
		}
		return response.InternalServerError(c, "Failed to verify certificate")
	}

	return response.Success(c, fiber.Map{
		"certificate_code": certificate.CertificateCode,
		"course_title":     certificate.Course.Title,
		"student_name":     certificate.User.DisplayName(),
		"issued_at":        certificate.IssuedAt,
		"valid":            true,
	})
}
