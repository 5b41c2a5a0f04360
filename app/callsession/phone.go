package callsession

import (
	"strings"
	"unicode"
)

// minPhoneDigits is the shortest number the dialer accepts
const minPhoneDigits = 10

// CleanPhone drops every character except digits and a leading plus sign
func CleanPhone(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		case unicode.IsDigit(r):
			// non-ASCII digits are not dialable
			return ""
		}
	}
	return b.String()
}

// DialablePhone cleans raw and returns ErrInvalidPhone when too few digits remain
func DialablePhone(raw string) (string, error) {
	clean := CleanPhone(raw)
	if len(strings.TrimPrefix(clean, "+")) < minPhoneDigits {
		return "", ErrInvalidPhone
	}
	return clean, nil
}
