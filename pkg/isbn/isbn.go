// Package isbn normalizes and validates ISBN-10 and ISBN-13 values. Catalog
// data stores them with inconsistent hyphenation and prefixes.
package isbn

import (
	"strings"
	"unicode"
)

// Normalize strips ISBN prefixes, hyphens, and spaces, keeping only digits
// and a trailing X.
func Normalize(value string) string {
	value = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(value)), "ISBN:")
	value = strings.TrimPrefix(value, "ISBN")

	var b strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) || r == 'X' || r == 'x' {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(b.String())
}

// Valid reports whether a normalized value is a checksum-correct ISBN-10 or
// ISBN-13.
func Valid(value string) bool {
	switch len(value) {
	case 10:
		return validISBN10(value)
	case 13:
		return validISBN13(value)
	default:
		return false
	}
}

// Canonical returns the normalized form of value if it is a valid ISBN, or
// the empty string otherwise.
func Canonical(value string) string {
	normalized := Normalize(value)
	if !Valid(normalized) {
		return ""
	}
	return normalized
}

// ISBN-10 checksums with weights 10 down to 1, modulo 11. X stands for 10
// and is only valid in the last position.
func validISBN10(value string) bool {
	sum := 0
	for i, r := range value {
		var digit int
		switch {
		case r == 'X':
			if i != 9 {
				return false
			}
			digit = 10
		case unicode.IsDigit(r):
			digit = int(r - '0')
		default:
			return false
		}
		sum += digit * (10 - i)
	}
	return sum%11 == 0
}

// ISBN-13 checksums with alternating weights 1 and 3, modulo 10.
func validISBN13(value string) bool {
	sum := 0
	for i, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
		digit := int(r - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	return sum%10 == 0
}
