package admin

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/model"
	authutil "github.com/pthanh137/pbl3-lms/utils/auth"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/response"
	"gorm.io/gorm"
)

// AdminHandler handles administrative requests
type AdminHandler struct {
	db        *gorm.DB
	blacklist *authutil.BlacklistService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{
		db:        db,
		blacklist: authutil.NewBlacklistService(db),
	}
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=student teacher admin"`
}

// ListUsers handles GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	search := c.Query("search", "")
	role := c.Query("role", "")

	query := h.db.Model(&model.User{})

	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where("email ILIKE ? OR full_name ILIKE ?", pattern, pattern)
	}
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count users")
	}

	pagination := response.CalculatePagination(page, limit, total)
	offset := (pagination.CurrentPage - 1) * pagination.PerPage

	var users []model.User
	if err := query.Order("created_at DESC").
		Limit(pagination.PerPage).
		Offset(offset).
		Find(&users).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch users")
	}

	return response.Paginated(c, users, pagination)
}

// GetUser handles GET /api/v1/admin/users/:id
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	var user model.User
	if err := h.db.First(&user, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	return response.Success(c, user)
}

// UpdateUser handles PUT /api/v1/admin/users/:id. Changing a user's role
// invalidates their sessions so stale role claims cannot be replayed.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	admin, ok := middleware.GetUser(c)
	if !ok || admin == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var user model.User
	if err := h.db.First(&user, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	roleChanged := false
	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Role != "" && req.Role != user.Role {
		if req.Role != model.RoleStudent && req.Role != model.RoleTeacher && req.Role != model.RoleAdmin {
			return response.BadRequest(c, "Invalid role")
		}
		if user.ID == admin.ID {
			return response.BadRequest(c, "You cannot change your own role")
		}
		user.Role = req.Role
		roleChanged = true
	}

	if err := h.db.Save(&user).Error; err != nil {
		return response.InternalServerError(c, "Failed to update user")
	}

	if roleChanged {
		if err := h.blacklist.RevokeAllUserTokens(c.Context(), user.ID); err != nil {
			return response.InternalServerError(c, "Failed to invalidate user sessions")
		}
	}

	return response.Success(c, user)
}

// DeleteUser handles DELETE /api/v1/admin/users/:id
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	admin, ok := middleware.GetUser(c)
	if !ok || admin == nil {
		return response.Unauthorized(c, "User not authenticated")
	}

	var user model.User
	if err := h.db.First(&user, c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	if user.ID == admin.ID {
		return response.BadRequest(c, "You cannot delete your own account")
	}

	if err := h.db.Delete(&user).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete user")
	}

	return response.NoContent(c)
}
