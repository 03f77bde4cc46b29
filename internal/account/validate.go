package account

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 20

	// maxPasswordBytes is the most bcrypt will hash.
	maxPasswordBytes = 72
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidationError reports a rejected form field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidateEmail checks the address shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return &ValidationError{Field: "email", Reason: "not a valid email address"}
	}
	return nil
}

// ValidatePassword checks the length bounds, counted in characters,
// and that the encoded password fits in a bcrypt hash.
func ValidatePassword(password string) error {
	n := len([]rune(password))
	if n < MinPasswordLength || n > MaxPasswordLength {
		return &ValidationError{
			Field:  "password",
			Reason: fmt.Sprintf("must be %d to %d characters", MinPasswordLength, MaxPasswordLength),
		}
	}
	if len(password) > maxPasswordBytes {
		return &ValidationError{
			Field:  "password",
			Reason: fmt.Sprintf("must be at most %d bytes", maxPasswordBytes),
		}
	}
	return nil
}

func validateNames(first, last string) error {
	if strings.TrimSpace(first) == "" {
		return &ValidationError{Field: "first_name", Reason: "required"}
	}
	if strings.TrimSpace(last) == "" {
		return &ValidationError{Field: "last_name", Reason: "required"}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
