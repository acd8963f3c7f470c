// Package validate provides input validation for the fields the service
// forwards to external providers. Parameterized queries remain the primary
// defense at the storage layer.
package validate

import (
	"errors"
	"regexp"
	"strings"
)

// Validation errors
var (
	ErrEmpty         = errors.New("value is empty")
	ErrStringTooLong = errors.New("value is too long")
	ErrInvalidEmail  = errors.New("invalid email format")
)

// emailPattern covers the common email formats. Stricter validation happens
// at the SMTP level.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Email validates an email address format.
// Returns the normalized (lowercased, trimmed) email and an error if invalid.
func Email(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" {
		return "", ErrEmpty
	}

	// Length constraints per RFC 5321.
	if len(email) > 254 {
		return "", ErrStringTooLong
	}

	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "", ErrInvalidEmail
	}

	localPart, domain := parts[0], parts[1]
	if len(localPart) > 64 {
		return "", ErrStringTooLong
	}
	if len(domain) > 255 {
		return "", ErrStringTooLong
	}
	if !strings.Contains(domain, ".") {
		return "", ErrInvalidEmail
	}

	return email, nil
}
