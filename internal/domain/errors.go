// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the operation is not valid in the entity's current
// state, or a uniqueness constraint was violated by a concurrent request.
var ErrConflict = errors.New("conflict")

// ErrValidation indicates malformed or incomplete input. The wrapped message
// is safe to return to the caller.
var ErrValidation = errors.New("validation")

// ErrInvalidToken indicates a signed token that is malformed, unparseable,
// or whose signature does not verify.
var ErrInvalidToken = errors.New("invalid token")

// ErrForbidden indicates the verified signer is not permitted to perform the
// requested operation.
var ErrForbidden = errors.New("forbidden")

// ErrTokenMismatch indicates two tokens of a dual-token operation disagree on
// a shared field.
var ErrTokenMismatch = errors.New("token mismatch")

// ErrInsufficientFunds indicates the payer cannot cover the escrow amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrEscrowResolved indicates the escrow has already been released or split.
var ErrEscrowResolved = errors.New("escrow already resolved")

// ErrIdentityUnavailable indicates the identity collaborator could not be
// reached. Retryable by the caller.
var ErrIdentityUnavailable = errors.New("identity service unavailable")

// ErrLedgerUnavailable indicates the ledger collaborator could not be
// reached. Retryable by the caller.
var ErrLedgerUnavailable = errors.New("ledger service unavailable")

// ErrReconciliation indicates a cross-service partial failure whose
// compensating action also failed. The store and the ledger may disagree
// until an operator reconciles them.
var ErrReconciliation = errors.New("reconciliation required")
