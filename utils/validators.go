// File: /utils/validators.go
package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength matches the registration form rule
const MinPasswordLength = 6

var emailRegex = regexp.MustCompile(`^[A-Z0-9a-z._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,64}$`)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func IsValidPassword(password string) bool {
	return utf8.RuneCountInString(password) >= MinPasswordLength
}

// IsBlank reports whether s has no visible characters
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
