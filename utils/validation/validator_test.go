package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{"user@example.com", "a.b+c@sub.domain.org"}
	for _, email := range valid {
		assert.True(t, ValidateEmail(email), email)
	}

	invalid := []string{"", "plainaddress", "@no-local.com", "user@", "user @spaces.com"}
	for _, email := range invalid {
		assert.False(t, ValidateEmail(email), email)
	}
}

func TestValidatePassword(t *testing.T) {
	ok, problems := ValidatePassword("longenough1")
	assert.True(t, ok)
	assert.Empty(t, problems)

	ok, problems = ValidatePassword("short")
	assert.False(t, ok)
	assert.NotEmpty(t, problems)

	ok, problems = ValidatePassword("12345678901")
	assert.False(t, ok)
	assert.NotEmpty(t, problems)
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello \x00 "))
	assert.Equal(t, "", SanitizeString("\x00"))
}
