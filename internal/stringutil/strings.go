// Package stringutil provides common string manipulation utilities.
package stringutil

import "strings"

// IsNumeric checks if a string contains only digits.
// Returns false for empty strings.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsSignedNumeric checks if a string is an optionally signed decimal integer
// ("-3", "+7", "0"). Returns false for a bare sign or empty string.
func IsSignedNumeric(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	return IsNumeric(s)
}

// CollapseSpaces normalizes whitespace in scraped text: runs of spaces,
// tabs, newlines, and non-breaking spaces become a single space, and the
// result is trimmed.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
