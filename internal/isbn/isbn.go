// Package isbn validates and normalizes ISBN-10 and ISBN-13 identifiers.
package isbn

import (
	"strings"
)

// Clean strips separators from a candidate ISBN and validates its checksum.
// ISBN-10 values are returned with an uppercase check character; ISBN-13
// values are returned as bare digits. Returns false when the candidate is
// not a valid ISBN of either length.
func Clean(candidate string) (string, bool) {
	normalized := strip(candidate)

	switch len(normalized) {
	case 10:
		if validISBN10(normalized) {
			return normalized, true
		}
	case 13:
		if validISBN13(normalized) {
			return normalized, true
		}
	}
	return "", false
}

// strip removes hyphens, spaces, and dots, and uppercases the trailing
// check character so "x" and "X" compare equal.
func strip(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == 'x' || r == 'X':
			sb.WriteRune('X')
		case r == '-' || r == ' ' || r == '.':
			// Separator, dropped.
		default:
			// Any other character disqualifies the candidate; return a
			// string of invalid length.
			return ""
		}
	}
	return sb.String()
}

// validISBN10 checks the ISBN-10 weighted checksum. The check character may
// be 'X' (value 10); 'X' anywhere else is invalid.
func validISBN10(s string) bool {
	sum := 0
	for i, r := range s {
		var v int
		switch {
		case r >= '0' && r <= '9':
			v = int(r - '0')
		case r == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

// validISBN13 checks the ISBN-13 alternating 1/3 checksum.
func validISBN13(s string) bool {
	sum := 0
	for i, r := range s {
		if r < '0' || r > '9' {
			return false
		}
		v := int(r - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return sum%10 == 0
}
