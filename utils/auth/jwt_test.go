package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret:        "test-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "pbl3-lms-test",
	})
}

func TestGenerateAndValidate(t *testing.T) {
	m := testManager()

	token, jti, err := m.GenerateAccessToken(42, "student@example.com", "student", 3)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "student@example.com", claims.Email)
	assert.Equal(t, "student", claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Equal(t, jti, claims.ID)
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := testManager()

	_, err := m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Token signed with a different secret
	other := NewJWTManager(JWTConfig{Secret: "different", Expiry: time.Hour, RefreshExpiry: time.Hour})
	token, _, err := other.GenerateAccessToken(1, "a@b.c", "student", 0)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	m := NewJWTManager(JWTConfig{
		Secret:        "test-secret",
		Expiry:        -time.Minute,
		RefreshExpiry: -time.Minute,
	})

	token, _, err := m.GenerateAccessToken(1, "a@b.c", "student", 0)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	// Expiry is still readable from an expired token
	expiry, err := m.GetTokenExpiry(token)
	require.NoError(t, err)
	assert.True(t, expiry.Before(time.Now()))
}

func TestRefreshAccessToken(t *testing.T) {
	m := testManager()

	refresh, _, err := m.GenerateRefreshToken(7, "x@y.z", "teacher", 1)
	require.NoError(t, err)

	access, _, err := m.RefreshAccessToken(refresh, 1)
	require.NoError(t, err)

	claims, err := m.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, uint(7), claims.UserID)

	t.Run("access token cannot be used as refresh", func(t *testing.T) {
		accessOnly, _, err := m.GenerateAccessToken(7, "x@y.z", "teacher", 1)
		require.NoError(t, err)

		_, _, err = m.RefreshAccessToken(accessOnly, 1)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
