package review

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/services"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/response"
	"github.com/pthanh137/pbl3-lms/utils/validation"
)

// ReviewHandler handles course review requests
type ReviewHandler struct {
	reviews *services.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// UpsertRequest represents the request body for creating or replacing a
// review
type UpsertRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"omitempty,max=2000"`
}

// Upsert handles PUT /api/v1/courses/:id/reviews
func (h *ReviewHandler) Upsert(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	var req UpsertRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	review, err := h.reviews.Upsert(c.Context(), user, uint(courseID), req.Rating, validation.SanitizeString(req.Comment))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidRating):
			return response.BadRequest(c, "Rating must be between 1 and 5")
		case errors.Is(err, services.ErrNotEnrolled):
			return response.Error(c, fiber.StatusForbidden, "You must enroll in this course first", "NOT_ENROLLED")
		default:
			return response.InternalServerError(c, "Failed to save review")
		}
	}

	return response.Success(c, review)
}

// ListForCourse handles GET /api/v1/courses/:id/reviews
func (h *ReviewHandler) ListForCourse(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}

	reviews, total, err := h.reviews.ListForCourse(c.Context(), uint(courseID), limit, (page-1)*limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to load reviews")
	}

	return response.Paginated(c, reviews, response.CalculatePagination(page, limit, total))
}

// GetMine handles GET /api/v1/courses/:id/reviews/me
func (h *ReviewHandler) GetMine(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	review, err := h.reviews.GetMine(c.Context(), user.ID, uint(courseID))
	if err != nil {
		return response.InternalServerError(c, "Failed to load review")
	}
	if review == nil {
		return response.NotFound(c, "Review not found")
	}

	return response.Success(c, review)
}

// Delete handles DELETE /api/v1/courses/:id/reviews/me
func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok || user == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil || courseID <= 0 {
		return response.BadRequest(c, "Invalid course id")
	}

	if err := h.reviews.Delete(c.Context(), user.ID, uint(courseID)); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return response.NotFound(c, "Review not found")
		}
		return response.InternalServerError(c, "Failed to delete review")
	}

	return response.NoContent(c)
}
