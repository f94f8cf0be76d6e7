package domain

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidEmailFormat is returned by NewRecipientEmail when the input is not
// a syntactically valid address. It wraps ErrValidation so handlers that only
// know about validation failures still map it to 422.
var ErrInvalidEmailFormat = fmt.Errorf("%w: invalid email format", ErrValidation)

// emailValidator is safe for concurrent use; validator caches struct metadata
// internally and Var does not mutate shared state.
var emailValidator = validator.New()

// RecipientEmail is the normalized address of a user a tag is shared with.
// The zero value is not a valid address; build one with NewRecipientEmail.
type RecipientEmail struct {
	value string
}

// NewRecipientEmail trims and lower-cases raw, then validates it.
// A valid address has a local part, a single "@", a domain containing at
// least one dot, and no embedded whitespace.
func NewRecipientEmail(raw string) (RecipientEmail, error) {
	v := strings.ToLower(strings.TrimSpace(raw))

	if v == "" || strings.IndexFunc(v, unicode.IsSpace) >= 0 {
		return RecipientEmail{}, ErrInvalidEmailFormat
	}
	at := strings.LastIndexByte(v, '@')
	if at <= 0 || at == len(v)-1 {
		return RecipientEmail{}, ErrInvalidEmailFormat
	}
	if domainPart := v[at+1:]; !strings.Contains(domainPart, ".") ||
		strings.HasPrefix(domainPart, ".") || strings.HasSuffix(domainPart, ".") {
		return RecipientEmail{}, ErrInvalidEmailFormat
	}
	if err := emailValidator.Var(v, "email"); err != nil {
		return RecipientEmail{}, ErrInvalidEmailFormat
	}

	return RecipientEmail{value: v}, nil
}

// String returns the normalized address.
func (e RecipientEmail) String() string {
	return e.value
}

// IsZero reports whether e was never successfully constructed.
func (e RecipientEmail) IsZero() bool {
	return e.value == ""
}
