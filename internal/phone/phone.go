// Package phone canonicalizes Kenyan subscriber numbers to the
// 254XXXXXXXXX form the gateway expects.
package phone

import (
	"regexp"
	"strings"
)

const countryCode = "254"

var msisdnPattern = regexp.MustCompile(`^254[0-9]{9}$`)

// Normalize maps any raw phone input onto international digit form:
// non-digits are stripped, a leading trunk zero is replaced by the country
// code, and inputs carrying neither get the country code prepended. It is
// total and idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, countryCode):
		return digits
	case strings.HasPrefix(digits, "0"):
		return countryCode + digits[1:]
	default:
		return countryCode + digits
	}
}

// Valid reports whether msisdn is a normalized Kenyan subscriber number.
func Valid(msisdn string) bool {
	return msisdnPattern.MatchString(msisdn)
}
