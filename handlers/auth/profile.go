package auth

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/model"
	"github.com/pthanh137/pbl3-lms/utils/middleware"
	"github.com/pthanh137/pbl3-lms/utils/response"
	"github.com/pthanh137/pbl3-lms/utils/validation"
	"gorm.io/datatypes"
)

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	FullName    string            `json:"full_name,omitempty"`
	Bio         string            `json:"bio,omitempty"`
	Headline    string            `json:"headline,omitempty"`
	Country     string            `json:"country,omitempty"`
	Language    string            `json:"language,omitempty"`
	SocialLinks map[string]string `json:"social_links,omitempty"`
}

// ProfileResponse extends UserResponse with the long-form profile fields.
type ProfileResponse struct {
	UserResponse
	Bio         string         `json:"bio,omitempty"`
	Country     string         `json:"country,omitempty"`
	Language    string         `json:"language,omitempty"`
	SocialLinks datatypes.JSON `json:"social_links,omitempty"`
}

func toProfileResponse(user *model.User) ProfileResponse {
	return ProfileResponse{
		UserResponse: toUserResponse(user),
		Bio:          user.Bio,
		Country:      user.Country,
		Language:     user.Language,
		SocialLinks:  user.SocialLinks,
	}
}

// GetProfile retrieves the current user's profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	return response.Success(c, toProfileResponse(user))
}

// UpdateProfile updates the current user's profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.FullName != "" {
		user.FullName = validation.SanitizeString(req.FullName)
	}
	if req.Bio != "" {
		user.Bio = validation.SanitizeString(req.Bio)
	}
	if req.Headline != "" {
		user.Headline = validation.SanitizeString(req.Headline)
	}
	if req.Country != "" {
		user.Country = validation.SanitizeString(req.Country)
	}
	if req.Language != "" {
		user.Language = validation.SanitizeString(req.Language)
	}
	if req.SocialLinks != nil {
		raw, err := json.Marshal(req.SocialLinks)
		if err != nil {
			return response.BadRequest(c, "Invalid social links")
		}
		user.SocialLinks = datatypes.JSON(raw)
	}

	if err := h.db.Save(user).Error; err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}

	return response.Success(c, toProfileResponse(user))
}
