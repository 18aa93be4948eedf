// Package identity defines the port for the external identity collaborator.
package identity

import "context"

// Verification is the result of verifying a compact signed token.
type Verification struct {
	SignerID string
	Payload  map[string]any
}

// Verifier validates signed tokens against the signer's registered key.
// The service behind this port holds all cryptographic material; the core
// never sees a key.
//
// Verify fails with domain.ErrInvalidToken when the token is malformed or
// its signature does not check out, and with domain.ErrIdentityUnavailable
// when the collaborator cannot be reached.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Verification, error)
}
