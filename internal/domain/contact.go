package domain

import (
	"net/mail"
	"strings"
)

// NormalizeContact canonicalizes a customer contact: emails are lower-cased,
// phone numbers reduced to digits with an optional leading '+'.
func NormalizeContact(contact string) (string, error) {
	c := strings.TrimSpace(contact)
	if c == "" {
		return "", invalid("contact", "is required")
	}
	if strings.Contains(c, "@") {
		addr, err := mail.ParseAddress(c)
		if err != nil || addr.Address != c {
			return "", invalid("contact", "is not a valid email address")
		}
		return strings.ToLower(addr.Address), nil
	}

	var b strings.Builder
	for i, r := range c {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", invalid("contact", "contains unexpected characters")
		}
	}
	out := b.String()
	digits := len(strings.TrimPrefix(out, "+"))
	if digits < 7 || digits > 15 {
		return "", invalid("contact", "must have 7 to 15 digits")
	}
	return out, nil
}

// ContactDigits strips everything but digits, the form click-to-chat links use.
func ContactDigits(contact string) string {
	var b strings.Builder
	for _, r := range contact {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
