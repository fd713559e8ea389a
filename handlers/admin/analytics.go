package admin

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/services"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/response"
)

// AnalyticsHandler serves platform and course analytics
type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Dashboard handles GET /api/v1/admin/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	stats, err := h.analytics.GetDashboardStats(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to load dashboard stats")
	}

	return response.Success(c, stats)
}

// Enrollments handles GET /api/v1/admin/analytics/enrollments
func (h *AnalyticsHandler) Enrollments(c *fiber.Ctx) error {
	days, _ := strconv.Atoi(c.Query("days", "30"))
	if days < 1 || days > 365 {
		days = 30
	}

	series, err := h.analytics.GetEnrollmentTimeSeries(c.Context(), days)
	if err != nil {
		return response.InternalServerError(c, "Failed to load enrollment series")
	}

	return response.Success(c, series)
}

// Revenue handles GET /api/v1/admin/analytics/revenue
func (h *AnalyticsHandler) Revenue(c *fiber.Ctx) error {
	days, _ := strconv.Atoi(c.Query("days", "30"))
	if days < 1 || days > 365 {
		days = 30
	}

	series, err := h.analytics.GetRevenueTimeSeries(c.Context(), days)
	if err != nil {
		return response.InternalServerError(c, "Failed to load revenue series")
	}

	return response.Success(c, series)
}

// TopCourses handles GET /api/v1/admin/analytics/top-courses
func (h *AnalyticsHandler) TopCourses(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	courses, err := h.analytics.GetTopCourses(c.Context(), limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to load top courses")
	}

	return response.Success(c, courses)
}

// CourseStats handles GET /api/v1/analytics/courses/:id. Available to the
// course owner and admins.
func (h *AnalyticsHandler) CourseStats(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	stats, err := h.analytics.GetCourseStats(c.Context(), user, uint(courseID))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return response.NotFound(c, "Course not found")
		case errors.Is(err, services.ErrNotCourseOwner):
			return response.Forbidden(c, "You do not own this course")
		default:
			return response.InternalServerError(c, "Failed to load course stats")
		}
	}

	return response.Success(c, stats)
}

// TeacherStats handles GET /api/v1/analytics/me, the teacher's own
// aggregate view.
func (h *AnalyticsHandler) TeacherStats(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	stats, err := h.analytics.GetTeacherStats(c.Context(), user.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load teacher stats")
	}

	return response.Success(c, stats)
}
