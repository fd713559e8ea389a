package enrollment

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

// EnrollmentHandler handles enrollment, purchase, and roster requests
type EnrollmentHandler struct {
	db            *gorm.DB
	enrollments   *services.EnrollmentService
	notifications *services.NotificationService
	mailer        email.Mailer
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(db *gorm.DB, enrollments *services.EnrollmentService, notifications *services.NotificationService, mailer email.Mailer) *EnrollmentHandler {
	return &EnrollmentHandler{
		db:            db,
		enrollments:   enrollments,
		notifications: notifications,
		mailer:        mailer,
	}
}

// PurchaseRequest represents the request body for a purchase
type PurchaseRequest struct {
	Mode string `json:"mode,omitempty"` // "audit" or "paid", defaults to "paid"
}

// mapServiceError translates service errors into HTTP responses with
// machine-readable reason codes.
func mapServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return response.NotFound(c, "Course not found")
	case errors.Is(err, services.ErrSelfPurchaseDenied):
		return response.Error(c, fiber.StatusForbidden, "You cannot purchase your own course", "SELF_PURCHASE_DENIED")
	case errors.Is(err, services.ErrOnlyStudents):
		return response.Error(c, fiber.StatusForbidden, "Only students can perform this action", "ONLY_STUDENTS")
	case errors.Is(err, services.ErrInvalidMode):
		return response.BadRequestWithCode(c, "Mode must be 'audit' or 'paid'", "INVALID_MODE")
	case errors.Is(err, services.ErrAlreadyEnrolled):
		return response.Conflict(c, "You are already enrolled in this course")
	case errors.Is(err, services.ErrNotCourseOwner):
		return response.Forbidden(c, "You do not own this course")
	case errors.Is(err, services.ErrNotEnrolled):
		return response.Error(c, fiber.StatusForbidden, "You must enroll in this course first", "NOT_ENROLLED")
	default:
		return response.InternalServerError(c, "Something went wrong")
	}
}

// Enroll handles POST /api/v1/courses/:id/enroll, creating a free audit
// enrollment.
func (h *EnrollmentHandler) Enroll(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	enrollment, err := h.enrollments.Enroll(c.Context(), user, uint(courseID))
	if err != nil {
		return mapServiceError(c, err)
	}

	var course model.Course
	if err := h.db.First(&course, courseID).Error; err == nil {
		h.notifications.NotifyEnrollment(c.Context(), user.ID, &course, enrollment.EnrollmentType)
	}

	return response.Created(c, enrollment)
}

// Purchase handles POST /api/v1/courses/:id/purchase, running the
// purchase resolver. A fresh enrollment returns 201; reconciling against
// an existing one returns 200.
func (h *EnrollmentHandler) Purchase(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	var req PurchaseRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.enrollments.Purchase(c.Context(), user, uint(courseID), req.Mode)
	if err != nil {
		return mapServiceError(c, err)
	}

	if result.Created && result.EnrollmentType == model.EnrollmentPaid {
		var course model.Course
		if err := h.db.First(&course, courseID).Error; err == nil {
			h.notifications.NotifyPurchase(c.Context(), user.ID, &course, course.Price)

			var payment model.Payment
			if err := h.db.Where("user_id = ? AND course_id = ?", user.ID, course.ID).
				Order("created_at DESC").
				First(&payment).Error; err == nil {
				go h.mailer.Send(email.PurchaseReceipt(user.DisplayName(), user.Email, course.Title, payment.ReferenceCode, payment.Amount))
			}
		}
	}

	if result.Created {
		return response.Created(c, result)
	}
	return response.Success(c, result)
}

// MyCourses handles GET /api/v1/me/courses, the student dashboard.
func (h *EnrollmentHandler) MyCourses(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courses, err := h.enrollments.MyCourses(c.Context(), user.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load courses")
	}

	return response.Success(c, courses)
}

// MyEnrollments handles GET /api/v1/me/enrollments, the raw ledger rows.
func (h *EnrollmentHandler) MyEnrollments(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	enrollments, err := h.enrollments.ListMine(c.Context(), user.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load enrollments")
	}

	return response.Success(c, enrollments)
}

// CourseStudents handles GET /api/v1/courses/:id/students, the teacher's
// roster view.
func (h *EnrollmentHandler) CourseStudents(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	opts := services.RosterOptions{
		Search: c.Query("search", ""),
		Status: c.Query("status", ""),
	}

	roster, err := h.enrollments.CourseStudents(c.Context(), user, uint(courseID), opts)
	if err != nil {
		return mapServiceError(c, err)
	}

	return response.Success(c, roster)
}

// RemoveStudent handles DELETE /api/v1/courses/:id/students/:studentId.
func (h *EnrollmentHandler) RemoveStudent(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	studentID, err := c.ParamsInt("studentId")
	if err != nil || studentID <= 0 {
		return response.BadRequest(c, "Invalid student id")
	}

	if err := h.enrollments.RemoveStudent(c.Context(), user, uint(courseID), uint(studentID)); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return response.NotFound(c, "Enrollment not found")
		}
		return mapServiceError(c, err)
	}

	return response.NoContent(c)
}
