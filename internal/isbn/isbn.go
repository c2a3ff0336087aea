// Package isbn provides ISBN/EAN-13 validation and normalization helpers.
package isbn

import "strings"

// ValidEAN13 reports whether s is a valid EAN-13 identifier.
// The empty string is considered valid, meaning "no ISBN supplied".
// Any other string must be exactly 13 digits with a correct check digit.
func ValidEAN13(s string) bool {
	if s == "" {
		return true
	}
	if len(s) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(s[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if i%2 == 0 {
			sum += d
		} else {
			sum += 3 * d
		}
	}
	last := int(s[12] - '0')
	if last < 0 || last > 9 {
		return false
	}
	check := 0
	if sum%10 != 0 {
		check = 10 - sum%10
	}
	return check == last
}

// Normalize strips hyphens and spaces from an ISBN, as typed or scanned
// input frequently contains both.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, " ", "")
}
