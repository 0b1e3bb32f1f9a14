// Package validation holds the email-shape rule shared by the HTTP binding layer, the
// waitlist service and the client form. The rule applies to the address exactly as supplied.
package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EmailShapeTag is the binding tag that applies IsWaitlistEmail to a struct field.
const EmailShapeTag = "waitlist_email"

// MaxEmailLength bounds the stored address (local part 64 + "@" + domain 255).
const MaxEmailLength = 320

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsWaitlistEmail reports whether s has the minimal email shape: one "@", a domain part
// containing a ".", and no whitespace anywhere.
func IsWaitlistEmail(s string) bool {
	if s == "" || len(s) > MaxEmailLength {
		return false
	}
	return emailShape.MatchString(s)
}

// EmailDomain returns the lower-cased domain part, for log fields and span attributes only.
// The stored address is never rewritten.
func EmailDomain(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return ""
	}
	// A Caser keeps state between calls, so one is built per call.
	return cases.Lower(language.Und).String(email[at+1:])
}

// RegisterEmailShape installs the waitlist_email tag on v.
func RegisterEmailShape(v *validator.Validate) error {
	return v.RegisterValidation(EmailShapeTag, func(fl validator.FieldLevel) bool {
		return IsWaitlistEmail(fl.Field().String())
	})
}
