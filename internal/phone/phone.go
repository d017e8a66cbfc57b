// Package phone provides phone number masking, validation, and the
// deterministic document-id derivation used to label lookup results.
package phone

import (
	"fmt"
	"strings"
)

// DocumentIDPrefix tags every derived document id.
const DocumentIDPrefix = "spam_check_"

// maskChar replaces all but the last four characters of a number.
const maskChar = "*"

// MaskNumber masks a phone number for display and logging, keeping only
// the last four characters. Numbers shorter than four characters are
// masked entirely.
func MaskNumber(number string) string {
	if len(number) < 4 {
		return strings.Repeat(maskChar, len(number))
	}
	return strings.Repeat(maskChar, len(number)-4) + number[len(number)-4:]
}

// IsValidExternalFormat reports whether a number is in the external
// (E.164-style) format accepted by the upstream lookup API: a leading
// "+" followed by 10 to 15 ASCII digits.
func IsValidExternalFormat(number string) bool {
	if !strings.HasPrefix(number, "+") {
		return false
	}
	digits := number[1:]
	if len(digits) < 10 || len(digits) > 15 {
		return false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return false
		}
	}
	return true
}

// DocumentID derives a deterministic short identifier for a phone number.
//
// The accumulator must stay a fixed-width 32-bit signed integer: ids
// already handed out depend on the multiply-by-31 step wrapping at 32
// bits, and a wider accumulator would change the output. The hash space
// is narrow (8 hex chars), so collisions between distinct numbers are
// possible and accepted.
func DocumentID(number string) string {
	var hash int32
	for i := 0; i < len(number); i++ {
		hash = hash*31 + int32(number[i])
	}
	if hash < 0 {
		hash = -hash
	}
	hex := fmt.Sprintf("%x", uint32(hash))
	if len(hex) > 8 {
		hex = hex[:8]
	}
	return DocumentIDPrefix + hex
}

// defaultCountryPrefix is prepended to bare digit runs by SniffQuery.
// This is a heuristic that assumes NANP numbers; non-US bare numbers
// will be mis-prefixed (known ambiguity, kept as-is).
const defaultCountryPrefix = "+1"

// SniffQuery decides whether a search query looks like a phone number
// and, if so, normalizes it to the external format. A query with a
// leading "+" is taken verbatim; a bare run of 10 or more digits gets
// the default country prefix. Anything else is not a phone number.
func SniffQuery(query string) (string, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", false
	}
	if strings.HasPrefix(q, "+") {
		return q, true
	}
	if len(q) >= 10 && allDigits(q) {
		return defaultCountryPrefix + q, true
	}
	return "", false
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
