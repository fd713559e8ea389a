package announcement

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/services"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/response"
	"github.com/pthanh137/pbl3-lms/utils/validation"
)

// AnnouncementHandler handles course announcement requests
type AnnouncementHandler struct {
	announcements *services.AnnouncementService
	validator     *validation.Validator
}

// NewAnnouncementHandler creates a new announcement handler
func NewAnnouncementHandler(announcements *services.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{
		announcements: announcements,
		validator:     validation.NewValidator(),
	}
}

// SendAnnouncementRequest represents the request body for sending an announcement
type SendAnnouncementRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=255"`
	Message string `json:"message" validate:"required,min=1"`
}

// Send handles POST /api/v1/courses/:id/announcements
func (h *AnnouncementHandler) Send(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	var req SendAnnouncementRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	announcement, err := h.announcements.Send(c.Context(), user, uint(courseID),
		validation.SanitizeString(req.Title), validation.SanitizeString(req.Message))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return response.NotFound(c, "Course not found")
		case errors.Is(err, services.ErrNotCourseOwner):
			return response.Forbidden(c, "You do not own this course")
		default:
			return response.InternalServerError(c, "Failed to send announcement")
		}
	}

	return response.Created(c, announcement)
}

// ListForCourse handles GET /api/v1/courses/:id/announcements
func (h *AnnouncementHandler) ListForCourse(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	announcements, err := h.announcements.ListForCourse(c.Context(), user, uint(courseID))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return response.NotFound(c, "Course not found")
		case errors.Is(err, services.ErrNotEnrolled):
			return response.Error(c, fiber.StatusForbidden, err.Error(), "NOT_ENROLLED")
		default:
			return response.InternalServerError(c, "Failed to load announcements")
		}
	}

	return response.Success(c, announcements)
}

// ListSent handles GET /api/v1/announcements/sent
func (h *AnnouncementHandler) ListSent(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	announcements, err := h.announcements.ListSent(c.Context(), user.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load announcements")
	}

	return response.Success(c, announcements)
}

// MarkRead handles POST /api/v1/announcements/:id/read
func (h *AnnouncementHandler) MarkRead(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid announcement id")
	}

	if err := h.announcements.MarkRead(c.Context(), user, uint(id)); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return response.NotFound(c, "Announcement not found")
		case errors.Is(err, services.ErrNotEnrolled):
			return response.Error(c, fiber.StatusForbidden, err.Error(), "NOT_ENROLLED")
		default:
			return response.InternalServerError(c, "Failed to mark announcement read")
		}
	}

	return response.Success(c, fiber.Map{"message": "Announcement marked as read"})
}

// Delete handles DELETE /api/v1/announcements/:id
func (h *AnnouncementHandler) Delete(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid announcement id")
	}

	if err := h.announcements.Delete(c.Context(), user, uint(id)); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return response.NotFound(c, "Announcement not found")
		case errors.Is(err, services.ErrNotCourseOwner):
			return response.Forbidden(c, "You do not own this course")
		default:
			return response.InternalServerError(c, "Failed to delete announcement")
		}
	}

	return response.NoContent(c)
}
