// Package auth turns a session token into a verified user id.
// Tokens are PASETO v4.local, encrypted with a shared symmetric key. Issuing
// them belongs to the sign-in flow; this package only needs Issue for seeding
// and tests.
package auth

import (
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "notekeeper"
	tokenAudience = "notekeeper-api"

	keyHexSize = 64 // 32 bytes as hex
)

// ErrInvalidToken is returned for tokens that fail decryption or claim checks.
var ErrInvalidToken = errors.New("invalid session token")

// Verifier decrypts and validates session tokens.
type Verifier struct {
	key paseto.V4SymmetricKey
	ttl time.Duration
	now func() time.Time
}

// NewVerifier builds a Verifier from a 64-character hex key.
// ttl is the lifetime given to tokens created by Issue.
func NewVerifier(keyHex string, ttl time.Duration) (*Verifier, error) {
	if len(keyHex) != keyHexSize {
		return nil, fmt.Errorf("auth.NewVerifier: key must be %d hex characters, got %d", keyHexSize, len(keyHex))
	}
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("auth.NewVerifier: decode key: %w", err)
	}
	key, err := paseto.V4SymmetricKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("auth.NewVerifier: %w", err)
	}
	return &Verifier{key: key, ttl: ttl, now: time.Now}, nil
}

// Issue creates a session token for userID.
func (v *Verifier) Issue(userID uuid.UUID) string {
	now := v.now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(userID.String())
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(v.ttl))

	return token.V4Encrypt(v.key, nil)
}

// Verify returns the user id carried by a valid, unexpired token.
func (v *Verifier) Verify(tokenString string) (uuid.UUID, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(v.now()))

	token, err := parser.ParseV4Local(v.key, tokenString, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, err := token.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	return id, nil
}
