// Package ledger defines the port for the external escrow ledger.
package ledger

import "context"

// Ledger is the port interface for escrow money movement.
//
// Lock is idempotent by task ID: a retried call with the same (task_id,
// amount) returns the escrow ID of the existing lock instead of locking
// twice. Release and Split resolve an escrow exactly once; a second attempt
// fails with domain.ErrEscrowResolved.
//
// Failure modes: domain.ErrInsufficientFunds, domain.ErrNotFound (unknown
// account or escrow), domain.ErrEscrowResolved, domain.ErrLedgerUnavailable.
type Ledger interface {
	Lock(ctx context.Context, payerID string, amount int64, taskID string) (escrowID string, err error)
	Release(ctx context.Context, escrowID, recipientID string) error

	// Split pays floor(total*pctToA/100) to recipientA and the remainder
	// to recipientB, distributing 100% of the escrow with no residue.
	Split(ctx context.Context, escrowID, recipientA, recipientB string, pctToA int) error
}
