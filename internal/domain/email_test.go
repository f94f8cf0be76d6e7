package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/notekeeper/backend/internal/domain"
)

func TestNewRecipientEmail_Normalizes(t *testing.T) {
	got, err := domain.NewRecipientEmail("  Alice.Smith@Example.COM \n")

	require.NoError(t, err)
	assert.Equal(t, "alice.smith@example.com", got.String())
	assert.False(t, got.IsZero())
}

func TestNewRecipientEmail_ValueEquality(t *testing.T) {
	a, err := domain.NewRecipientEmail("bob@example.com")
	require.NoError(t, err)
	b, err := domain.NewRecipientEmail(" BOB@example.com")
	require.NoError(t, err)

	assert.True(t, a == b)
}

func TestNewRecipientEmail_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":              "",
		"whitespace only":    "   ",
		"no at":              "alice.example.com",
		"no local part":      "@example.com",
		"no domain":          "alice@",
		"domain without dot": "alice@localhost",
		"embedded space":     "ali ce@example.com",
		"space in domain":    "alice@exa mple.com",
		"trailing dot":       "alice@example.",
		"double at":          "a@b@example.com",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := domain.NewRecipientEmail(raw)

			assert.ErrorIs(t, err, domain.ErrInvalidEmailFormat)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
