package crypto

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// Pre-compiled regexes for credential validation
var (
	reUpper    = regexp.MustCompile(`[A-Z]`)
	reLower    = regexp.MustCompile(`[a-z]`)
	reDigit    = regexp.MustCompile(`[0-9]`)
	reUsername = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

	ErrPasswordStrength = errors.New("password must be at least 8 characters long and contain at least one uppercase letter, one lowercase letter, and one digit")
)

// HashPassword hashes a password using bcrypt with the given cost
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword verifies a password against its hash
func CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// IsStrong checks if a password meets minimum strength requirements
// Requirements: ≥8 chars, 1 upper, 1 lower, 1 digit
func IsStrong(password string) bool {
	if len(password) < 8 {
		return false
	}

	hasUpper := reUpper.MatchString(password)
	hasLower := reLower.MatchString(password)
	hasDigit := reDigit.MatchString(password)

	return hasUpper && hasLower && hasDigit
}

// IsValidUsername reports whether the identifier is 3-20 characters of
// letters, digits, or underscore. Share recipients are validated with the
// same rule before any lookup happens.
func IsValidUsername(username string) bool {
	return reUsername.MatchString(username)
}

func passwordRule(fl validator.FieldLevel) bool {
	return IsStrong(fl.Field().String())
}

func usernameRule(fl validator.FieldLevel) bool {
	return IsValidUsername(fl.Field().String())
}

// RegisterValidators registers the "password" and "username" validation tags
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("password", passwordRule); err != nil {
		return err
	}
	return v.RegisterValidation("username", usernameRule)
}
