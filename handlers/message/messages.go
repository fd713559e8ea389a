package message

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/services"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/response"
	"github.com/pthanh137/pbl3-lms/utils/validation"
)

// MessageHandler handles direct-message requests
type MessageHandler struct {
	messages  *services.MessageService
	validator *validation.Validator
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{
		messages:  messages,
		validator: validation.NewValidator(),
	}
}

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	ReceiverID uint   `json:"receiver_id" validate:"required"`
	CourseID   *uint  `json:"course_id" validate:"omitempty"`
	Content    string `json:"content" validate:"required,min=1,max=5000"`
}

// Send handles POST /api/v1/messages
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	message, err := h.messages.Send(c.Context(), user, req.ReceiverID, req.CourseID, validation.SanitizeString(req.Content))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return response.NotFound(c, "Receiver not found")
		case errors.Is(err, services.ErrSelfMessage):
			return response.Error(c, fiber.StatusBadRequest, err.Error(), "SELF_MESSAGE")
		case errors.Is(err, services.ErrMessagingDenied):
			return response.Error(c, fiber.StatusForbidden, err.Error(), "MESSAGING_DENIED")
		default:
			return response.InternalServerError(c, "Failed to send message")
		}
	}

	return response.Created(c, message)
}

// ListConversations handles GET /api/v1/messages/conversations
func (h *MessageHandler) ListConversations(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	conversations, err := h.messages.ListConversations(c.Context(), user.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load conversations")
	}

	return response.Success(c, conversations)
}

// Conversation handles GET /api/v1/messages/with/:userId
func (h *MessageHandler) Conversation(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	otherID, err := c.ParamsInt("userId")
	if err != nil || otherID <= 0 {
		return response.BadRequest(c, "Invalid user id")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if page < 1 {
		page = 1
	}

	messages, total, err := h.messages.Conversation(c.Context(), user.ID, uint(otherID), limit, (page-1)*limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to load conversation")
	}

	return response.Paginated(c, messages, response.CalculatePagination(page, limit, total))
}

// MarkConversationRead handles POST /api/v1/messages/with/:userId/read
func (h *MessageHandler) MarkConversationRead(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	otherID, err := c.ParamsInt("userId")
	if err != nil || otherID <= 0 {
		return response.BadRequest(c, "Invalid user id")
	}

	updated, err := h.messages.MarkConversationRead(c.Context(), user.ID, uint(otherID))
	if err != nil {
		return response.InternalServerError(c, "Failed to mark conversation read")
	}

	return response.Success(c, fiber.Map{"updated": updated})
}

// UnreadCount handles GET /api/v1/messages/unread-count
func (h *MessageHandler) UnreadCount(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	count, err := h.messages.UnreadCount(c.Context(), user.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to count unread messages")
	}

	return response.Success(c, fiber.Map{"unread_count": count})
}
