package form

import (
	"regexp"
	"strings"
)

const (
	PhoneMinDigits = 8
	PhoneMaxDigits = 11
)

var tagPattern = regexp.MustCompile(`<[^>]*>?`)

// Sanitize strips tag-like substrings and surrounding whitespace.
func Sanitize(input string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(input, ""))
}

// NormalizePhone keeps only the ASCII digits of phone.
func NormalizePhone(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func ValidatePhone(phone string) bool {
	n := len(NormalizePhone(phone))
	return n >= PhoneMinDigits && n <= PhoneMaxDigits
}
