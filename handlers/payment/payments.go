package payment

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/model"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/response"
	"gorm.io/gorm"
)

// PaymentHandler serves the local payment ledger
type PaymentHandler struct {
	db *gorm.DB
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	return &PaymentHandler{db: db}
}

// ListMine handles GET /api/v1/me/payments
func (h *PaymentHandler) ListMine(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	query := h.db.Model(&model.Payment{}).Where("user_id = ?", user.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count payments")
	}

	pagination := response.CalculatePagination(page, limit, total)
	offset := (pagination.CurrentPage - 1) * pagination.PerPage

	var payments []model.Payment
	if err := query.Preload("Course").
		Order("created_at DESC").
		Limit(pagination.PerPage).
		Offset(offset).
		Find(&payments).Error; err != nil {
		return response.InternalServerError(c, "Failed to load payments")
	}

	return response.Paginated(c, payments, pagination)
}

// GetByReference handles GET /api/v1/me/payments/:reference. Users can
// only look up their own transactions.
func (h *PaymentHandler) GetByReference(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	reference := c.Params("reference")
	if reference == "" {
		return response.BadRequest(c, "Payment reference is required")
	}

	var payment model.Payment
	err := h.db.Preload("Course").
		Where("reference_code = ? AND user_id = ?", reference, user.ID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Payment not found")
		}
		return response.InternalServerError(c, "Failed to load payment")
	}

	return response.Success(c, payment)
}
