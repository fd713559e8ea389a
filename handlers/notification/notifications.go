package notification

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/services"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/response"
)

// NotificationHandler handles user notification requests
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List handles GET /api/v1/notifications
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}

	opts := services.ListNotificationsOptions{
		UserID:     user.ID,
		UnreadOnly: c.Query("unread") == "true",
		Category:   c.Query("category", ""),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}

	notifications, total, err := h.notifications.GetNotificationsByUser(c.Context(), opts)
	if err != nil {
		return response.InternalServerError(c, "Failed to load notifications")
	}

	return response.Paginated(c, notifications, response.CalculatePagination(page, limit, total))
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	count, err := h.notifications.GetUnreadCount(c.Context(), user.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to count notifications")
	}

	return response.Success(c, fiber.Map{"unread_count": count})
}

// MarkAsRead handles POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid notification id")
	}

	if err := h.notifications.MarkAsRead(c.Context(), uint(id), user.ID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return response.NotFound(c, "Notification not found")
		}
		return response.InternalServerError(c, "Failed to mark notification as read")
	}

	return response.Success(c, fiber.Map{"message": "Notification marked as read"})
}

// MarkAllAsRead handles POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	updated, err := h.notifications.MarkAllAsRead(c.Context(), user.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to mark notifications as read")
	}

	return response.Success(c, fiber.Map{"updated": updated})
}

// Delete handles DELETE /api/v1/notifications/:id
func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid notification id")
	}

	if err := h.notifications.DeleteNotification(c.Context(), uint(id), user.ID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return response.NotFound(c, "Notification not found")
		}
		return response.InternalServerError(c, "Failed to delete notification")
	}

	return response.NoContent(c)
}
