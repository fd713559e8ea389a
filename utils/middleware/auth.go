package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pthanh137/pbl3-lms/model"
	"github.com/pthanh137/pbl3-lms/utils/auth"
	"github.com/pthanh137/pbl3-lms/utils/response"
	"gorm.io/gorm"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	db               *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: auth.NewBlacklistService(db),
		db:               db,
	}
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*auth.Claims, *model.User, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return nil, nil, auth.ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, nil, auth.ErrInvalidToken
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		return nil, nil, err
	}

	if claims.TokenType != auth.TokenTypeAccess {
		return nil, nil, auth.ErrInvalidToken
	}

	isRevoked, err := m.blacklistService.IsTokenRevoked(c.Context(), claims.ID)
	if err != nil {
		return nil, nil, err
	}
	if isRevoked {
		return nil, nil, auth.ErrInvalidToken
	}

	var user model.User
	if err := m.db.First(&user, claims.UserID).Error; err != nil {
		return nil, nil, auth.ErrInvalidToken
	}

	// Token version mismatch means the token was invalidated wholesale
	if user.TokenVersion != claims.TokenVersion {
		return nil, nil, auth.ErrInvalidToken
	}

	return claims, &user, nil
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, err := m.authenticate(c)
		if err != nil {
			if err == auth.ErrExpiredToken {
				return response.Unauthorized(c, "Token has expired")
			}
			return response.Unauthorized(c, "Invalid or missing token")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_role", claims.Role)
		c.Locals("user", user)
		c.Locals("token_jti", claims.ID)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// Optional allows requests with or without a token; a valid token
// populates the user context, an absent or invalid one does not.
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, err := m.authenticate(c)
		if err != nil {
			return c.Next()
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_role", claims.Role)
		c.Locals("user", user)
		c.Locals("token_jti", claims.ID)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// RequireTeacher requires an authenticated user with the teacher role
func (m *AuthMiddleware) RequireTeacher() fiber.Handler {
	return m.requireRoles(model.RoleTeacher)
}

// RequireAdmin requires an authenticated user with the admin role
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return m.requireRoles(model.RoleAdmin)
}

// RequireTeacherOrAdmin requires the teacher or admin role. Used on
// course-management routes where admins share the teacher's powers and
// the service layer resolves ownership.
func (m *AuthMiddleware) RequireTeacherOrAdmin() fiber.Handler {
	return m.requireRoles(model.RoleTeacher, model.RoleAdmin)
}

func (m *AuthMiddleware) requireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, user, err := m.authenticate(c)
		if err != nil {
			if err == auth.ErrExpiredToken {
				return response.Unauthorized(c, "Token has expired")
			}
			return response.Unauthorized(c, "Invalid or missing token")
		}

		allowed := false
		for _, role := range roles {
			if user.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			return response.Forbidden(c, "Insufficient permissions")
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("user_role", claims.Role)
		c.Locals("user", user)
		c.Locals("token_jti", claims.ID)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// GetUserID extracts the authenticated user id from the request context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("user_id").(uint)
	return id, ok
}

// GetUser extracts the authenticated user from the request context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	user, ok := c.Locals("user").(*model.User)
	return user, ok
}

// GetTokenJTI extracts the current token's JTI from the request context
func GetTokenJTI(c *fiber.Ctx) (string, bool) {
	jti, ok := c.Locals("token_jti").(string)
	return jti, ok
}

// GetClaims extracts the JWT claims from the request context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals("claims").(*auth.Claims)
	return claims, ok
}
