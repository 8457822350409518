package utils

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 20

	// MinIdentifierLength applies to targets and identifiers (email, username or phone).
	MinIdentifierLength = 3
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	codeRegex     = regexp.MustCompile(`^[0-9]{6}$`)
)

// ValidateUsername validates username format
// Rules: 3-20 characters, letters, numbers, underscores only
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)

	if len(username) < MinUsernameLength {
		return &ValidationError{Field: "username", Message: "Username must be at least 3 characters"}
	}
	if len(username) > MaxUsernameLength {
		return &ValidationError{Field: "username", Message: "Username must be at most 20 characters"}
	}
	if !usernameRegex.MatchString(username) {
		return &ValidationError{Field: "username", Message: "Username can only contain letters, numbers, and underscores"}
	}
	if !(unicode.IsLetter(rune(username[0])) || unicode.IsNumber(rune(username[0]))) {
		return &ValidationError{Field: "username", Message: "Username must start with a letter or number"}
	}
	return nil
}

// NormalizeUsername converts username to lowercase for storage
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateIdentifier checks an email/username/phone style lookup key.
func ValidateIdentifier(field, value string) error {
	if len(strings.TrimSpace(value)) < MinIdentifierLength {
		return &ValidationError{Field: field, Message: field + " must be at least 3 characters"}
	}
	return nil
}

// ValidateCode checks that code is exactly six digits.
func ValidateCode(code string) error {
	if !codeRegex.MatchString(code) {
		return &ValidationError{Field: "code", Message: "code must be exactly 6 digits"}
	}
	return nil
}

// ValidatePassword applies the minimum length policy.
func ValidatePassword(field, password string) error {
	if len(password) < MinPasswordLength {
		return &ValidationError{Field: field, Message: "Password must be at least 8 characters"}
	}
	return nil
}

// IsEmailTarget reports whether a delivery target is an email address.
// Anything else is treated as a phone number.
func IsEmailTarget(target string) bool {
	return strings.Contains(target, "@")
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
