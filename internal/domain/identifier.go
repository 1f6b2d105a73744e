package domain

import (
	"regexp"
	"strings"
	"unicode"
)

var phonePattern = regexp.MustCompile(`^(0|\+84|84)\d{9}$`)

// SanitizeIdentifier removes every whitespace rune from a user-supplied
// phone number or user id.
func SanitizeIdentifier(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
}

func IsPhoneIdentifier(identifier string) bool {
	return phonePattern.MatchString(SanitizeIdentifier(identifier))
}

// NormalizePhone rewrites a phone-like identifier into the 84-prefixed form
// the upstream lookup expects. Non-phone input is returned sanitized but
// otherwise unchanged.
func NormalizePhone(identifier string) string {
	sanitized := SanitizeIdentifier(identifier)
	if !phonePattern.MatchString(sanitized) {
		return sanitized
	}

	switch {
	case strings.HasPrefix(sanitized, "+84"):
		return "84" + sanitized[3:]
	case strings.HasPrefix(sanitized, "0"):
		return "84" + sanitized[1:]
	default:
		return sanitized
	}
}
