// utils/validation.go
package utils

import (
	"regexp"
	"strings"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)
	codePattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,39}$`)
)

// ValidatePhone checks if a phone number is in a valid international format
func ValidatePhone(phone string) bool {
	cleaned := NormalizePhone(phone)
	return phonePattern.MatchString(cleaned)
}

// NormalizePhone strips spaces, dashes and parentheses.
func NormalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
}

// ValidateCode checks a department code or section slug: lowercase letters,
// digits, '-' and '_', starting with a letter or digit. The section separator
// is never allowed.
func ValidateCode(code string) bool {
	return codePattern.MatchString(code)
}
