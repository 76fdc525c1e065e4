// Package sanitizer normalizes user input before validation and storage.
// Transforms are plain func(T) T values and compose with Apply:
//
//	email := sanitizer.Apply(req.Email, sanitizer.Trim, sanitizer.NormalizeEmail)
package sanitizer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Apply runs transforms in order.
func Apply[T any](value T, transforms ...func(T) T) T {
	for _, t := range transforms {
		value = t(value)
	}
	return value
}

// Compose builds a reusable pipeline.
func Compose[T any](transforms ...func(T) T) func(T) T {
	return func(value T) T {
		return Apply(value, transforms...)
	}
}

func Trim(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeEmail trims and lowercases. Dots and plus tags are kept since
// their meaning is provider specific.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NFC composes combining sequences so that visually equal names compare
// and sort equal.
func NFC(s string) string {
	return norm.NFC.String(s)
}

// KeepDigits drops everything but ASCII and Unicode digits.
func KeepDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

var whitespace = regexp.MustCompile(`\s+`)

// SingleLine collapses all whitespace, newlines included, to single spaces.
func SingleLine(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// MaxLength truncates to maxLen runes.
func MaxLength(maxLen int) func(string) string {
	return func(s string) string {
		if maxLen <= 0 {
			return ""
		}
		runes := []rune(s)
		if len(runes) <= maxLen {
			return s
		}
		return string(runes[:maxLen])
	}
}
