package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"unicode"

	"github.com/campuscare/grievance-management/internal"
)

// ValidatePasswordPolicy enforces minimum length plus upper, lower and digit
// character classes. The length floor comes from configuration.
func ValidatePasswordPolicy(password string, minLength int) *internal.AppError {
	if len(password) < minLength {
		return internal.NewValidationError(
			fmt.Sprintf("password must be at least %d characters", minLength),
			internal.ErrCodeWeakPassword)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return internal.NewValidationError(
			"password must contain uppercase, lowercase and digit characters",
			internal.ErrCodeWeakPassword)
	}

	return nil
}

// GenerateRandomToken returns a cryptographically secure opaque token used
// for password resets.
func GenerateRandomToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateTempPassword produces an initial credential that satisfies the
// password policy; the account is created with force_password_change set.
func GenerateTempPassword() (string, error) {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return "Tmp1" + hex.EncodeToString(bytes), nil
}
