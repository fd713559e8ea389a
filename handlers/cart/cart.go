package cart

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/services"
	"github.com/pthanh137/pbl3-lms/services/email"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/response"
)

// CartHandler handles purchase cart requests
type CartHandler struct {
	cart   *services.CartService
	mailer email.Mailer
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cart *services.CartService, mailer email.Mailer) *CartHandler {
	return &CartHandler{
		cart:   cart,
		mailer: mailer,
	}
}

// AddRequest represents the request body for adding a cart item
type AddRequest struct {
	CourseID uint `json:"course_id" validate:"required,min=1"`
}

// Add handles POST /api/v1/cart
func (h *CartHandler) Add(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req AddRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.CourseID == 0 {
		return response.BadRequest(c, "course_id is required")
	}

	item, err := h.cart.Add(c.Context(), user, req.CourseID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			return response.NotFound(c, "Course not found")
		case errors.Is(err, services.ErrOnlyStudents):
			return response.Error(c, fiber.StatusForbidden, "Only students can use the cart", "ONLY_STUDENTS")
		case errors.Is(err, services.ErrSelfPurchaseDenied):
			return response.Error(c, fiber.StatusForbidden, "You cannot purchase your own course", "SELF_PURCHASE_DENIED")
		case errors.Is(err, services.ErrAlreadyOwned):
			return response.Conflict(c, "You already own this course")
		default:
			return response.InternalServerError(c, "Failed to add to cart")
		}
	}

	return response.Created(c, item)
}

// List handles GET /api/v1/cart
func (h *CartHandler) List(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	summary, err := h.cart.List(c.Context(), user.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load cart")
	}

	return response.Success(c, summary)
}

// Remove handles DELETE /api/v1/cart/:courseId
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := c.ParamsInt("courseId")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	if err := h.cart.Remove(c.Context(), user.ID, uint(courseID)); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return response.NotFound(c, "Cart item not found")
		}
		return response.InternalServerError(c, "Failed to remove cart item")
	}

	return response.NoContent(c)
}

// Checkout handles POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	result, err := h.cart.Checkout(c.Context(), user)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyCart):
			return response.BadRequestWithCode(c, "Your cart is empty", "EMPTY_CART")
		case errors.Is(err, services.ErrOnlyStudents):
			return response.Error(c, fiber.StatusForbidden, "Only students can check out", "ONLY_STUDENTS")
		default:
			return response.InternalServerError(c, "Checkout failed")
		}
	}

	if len(result.PurchasedCourseIDs) > 0 {
		go h.mailer.Send(email.Message{
			ToName:    user.DisplayName(),
			ToAddress: user.Email,
			Subject:   "Your order confirmation",
			TextBody: fmt.Sprintf("Hello %s,\n\nYour order of %d course(s) for $%.2f was successful.\n",
				user.DisplayName(), len(result.PurchasedCourseIDs), result.TotalCharged),
			HTMLBody: fmt.Sprintf("<p>Hello %s,</p><p>Your order of %d course(s) for $%.2f was successful.</p>",
				user.DisplayName(), len(result.PurchasedCourseIDs), result.TotalCharged),
		})
	}

	return response.Success(c, result)
}
