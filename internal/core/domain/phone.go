package domain

import "strings"

const countryCode = "254"

// NormalizePhone converts a Kenyan mobile number into the canonical
// 2547XXXXXXXX / 2541XXXXXXXX form the gateway expects.
//
// Accepted shapes:
//   - 07XXXXXXXX / 01XXXXXXXX (national trunk prefix)
//   - 7XXXXXXXX / 1XXXXXXXX (bare local form)
//   - +2547XXXXXXXX
//   - 2547XXXXXXXX (already canonical; returned unchanged)
//
// Normalization is idempotent: feeding the result back in returns it as is.
func NormalizePhone(raw string) (string, error) {
	phone := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	phone = strings.TrimPrefix(phone, "+")

	switch {
	case strings.HasPrefix(phone, countryCode):
		// already canonical
	case strings.HasPrefix(phone, "0"):
		phone = countryCode + phone[1:]
	case strings.HasPrefix(phone, "7") || strings.HasPrefix(phone, "1"):
		phone = countryCode + phone
	default:
		return "", NewValidationError("phone number must be a Kenyan mobile number")
	}

	if len(phone) != 12 || !isDigits(phone) {
		return "", NewValidationError("phone number must normalize to 12 digits starting with " + countryCode)
	}

	return phone, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
