// Package service implements the marketplace business logic: token
// authentication, escrow coordination and the task lifecycle engine.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Strob0t/TaskBazaar/internal/domain"
	"github.com/Strob0t/TaskBazaar/internal/port/identity"
)

// Claims is the verified content of one signed token: the signer identity
// established by the identity collaborator plus the decoded payload.
type Claims struct {
	SignerID string
	Payload  map[string]any
}

// String returns the named payload field as a string. A missing field or a
// non-string value fails with domain.ErrValidation.
func (c *Claims) String(key string) (string, error) {
	v, ok := c.Payload[key]
	if !ok {
		return "", fmt.Errorf("payload field %q missing: %w", key, domain.ErrValidation)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("payload field %q is not a string: %w", key, domain.ErrValidation)
	}
	return s, nil
}

// Int64 returns the named payload field as an int64. JSON numbers decode as
// float64, so the value must be integral and within int64 range.
func (c *Claims) Int64(key string) (int64, error) {
	v, ok := c.Payload[key]
	if !ok {
		return 0, fmt.Errorf("payload field %q missing: %w", key, domain.ErrValidation)
	}
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f < math.MinInt64 || f > math.MaxInt64 {
		return 0, fmt.Errorf("payload field %q is not an integer: %w", key, domain.ErrValidation)
	}
	return int64(f), nil
}

// Authenticator verifies signed tokens through the identity collaborator and
// layers the marketplace's payload rules on top of raw verification. It holds
// no cryptographic material.
type Authenticator struct {
	verifier identity.Verifier
}

// NewAuthenticator creates a new Authenticator.
func NewAuthenticator(verifier identity.Verifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// VerifyAction verifies the token and checks that its payload carries an
// "action" field equal to action. The action check distinguishes a valid
// token presented at the wrong endpoint from a forged one: the former is a
// validation failure, the latter an invalid token.
func (a *Authenticator) VerifyAction(ctx context.Context, token, action string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token: %w", domain.ErrInvalidToken)
	}

	vr, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	c := &Claims{SignerID: vr.SignerID, Payload: vr.Payload}
	got, err := c.String("action")
	if err != nil {
		return nil, err
	}
	if got != action {
		return nil, fmt.Errorf("token action %q does not authorize %q: %w", got, action, domain.ErrValidation)
	}
	return c, nil
}

// RequireSigner checks that the claims were signed by the expected identity.
func RequireSigner(c *Claims, signerID string) error {
	if c.SignerID != signerID {
		return fmt.Errorf("signer %q is not %q: %w", c.SignerID, signerID, domain.ErrForbidden)
	}
	return nil
}

// CrossCheck verifies that two independently signed payloads agree
// byte-for-byte on each shared field, comparing the canonical JSON encoding
// of the decoded values. A field absent from either payload, or any encoding
// difference, fails with domain.ErrTokenMismatch.
func CrossCheck(a, b *Claims, fields ...string) error {
	for _, f := range fields {
		va, oka := a.Payload[f]
		vb, okb := b.Payload[f]
		if !oka || !okb {
			return fmt.Errorf("field %q not present in both tokens: %w", f, domain.ErrTokenMismatch)
		}

		ea, err := json.Marshal(va)
		if err != nil {
			return fmt.Errorf("encode field %q: %w", f, domain.ErrTokenMismatch)
		}
		eb, err := json.Marshal(vb)
		if err != nil {
			return fmt.Errorf("encode field %q: %w", f, domain.ErrTokenMismatch)
		}
		if !bytes.Equal(ea, eb) {
			return fmt.Errorf("tokens disagree on %q: %w", f, domain.ErrTokenMismatch)
		}
	}
	return nil
}
