// Package phone canonicalizes phone numbers into the single comparison key
// used everywhere: opt-out lookups, reminder dedup, referral self-checks.
package phone

import "strings"

const (
	// CountryCode is the international calling code, digits only.
	CountryCode = "972"
	// TrunkPrefix is the national dialing prefix replaced by CountryCode.
	TrunkPrefix = "0"
)

// Normalize strips everything but digits and rewrites the number into
// country-code form: "050-123-4567" and "+972501234567" both become
// "972501234567". Pure and total: malformed input yields best-effort digits,
// never an error. Format validation belongs to the UI layer.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, CountryCode) {
		return digits
	}
	if strings.HasPrefix(digits, TrunkPrefix) {
		return CountryCode + digits[len(TrunkPrefix):]
	}
	// Bare national number without trunk prefix.
	return CountryCode + digits
}
