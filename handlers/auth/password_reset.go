package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pthanh137/pbl3-lms/model"
	"github.com/pthanh137/pbl3-lms/services/email"
	authutil "github.com/pthanh137/pbl3-lms/utils/auth"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/response"
	"github.com/pthanh137/pbl3-lms/utils/validation"
)

// ForgotPasswordRequest represents a password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents a password reset with token
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ForgotPassword creates a single-use reset token and mails it. The
// response never reveals whether the email is registered.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Email == "" {
		return response.BadRequest(c, "Email is required")
	}

	neutral := fiber.Map{
		"message": "If the email exists, a password reset link will be sent",
	}

	var user model.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return response.Success(c, neutral)
	}

	resetToken := uuid.New().String()
	passwordReset := model.PasswordReset{
		UserID:    user.ID,
		Token:     resetToken,
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}

	if err := h.db.Create(&passwordReset).Error; err != nil {
		return response.InternalServerError(c, "Failed to create reset token")
	}

	go h.mailer.Send(email.PasswordReset(user.DisplayName(), user.Email, h.appURL, resetToken))

	return response.Success(c, neutral)
}

// ResetPassword consumes a reset token and sets the new password. All
// existing sessions are invalidated.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.Token == "" || req.NewPassword == "" {
		return response.BadRequest(c, "Token and new password are required")
	}

	if ok, problems := validation.ValidatePassword(req.NewPassword); !ok {
		return response.BadRequest(c, problems[0])
	}

	var resetToken model.PasswordReset
	if err := h.db.Where("token = ?", req.Token).First(&resetToken).Error; err != nil {
		return response.BadRequest(c, "Invalid or expired reset token")
	}

	if !resetToken.IsValid() {
		return response.BadRequest(c, "Invalid or expired reset token")
	}

	var user model.User
	if err := h.db.First(&user, resetToken.UserID).Error; err != nil {
		return response.BadRequest(c, "User not found")
	}

	hashedPassword, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	if err := h.db.Model(&user).Updates(map[string]interface{}{
		"password_hash": hashedPassword,
		"token_version": user.TokenVersion + 1,
	}).Error; err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	now := time.Now()
	resetToken.UsedAt = &now
	h.db.Save(&resetToken)

	return response.Success(c, fiber.Map{
		"message": "Password reset successfully",
	})
}

// ChangePassword handles password change for authenticated users
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		return response.BadRequest(c, "Old password and new password are required")
	}

	if ok, problems := validation.ValidatePassword(req.NewPassword); !ok {
		return response.BadRequest(c, problems[0])
	}

	if err := authutil.VerifyPassword(user.PasswordHash, req.OldPassword); err != nil {
		return response.Unauthorized(c, "Current password is incorrect")
	}

	hashedPassword, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	// Bumping the version logs out every other session
	if err := h.db.Model(user).Updates(map[string]interface{}{
		"password_hash": hashedPassword,
		"token_version": user.TokenVersion + 1,
	}).Error; err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	return response.Success(c, fiber.Map{
		"message": "Password changed successfully",
	})
}
