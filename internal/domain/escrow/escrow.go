// Package escrow defines the immutable escrow journal entry.
package escrow

import "time"

// Op identifies a ledger operation recorded in the journal.
type Op string

const (
	OpLock    Op = "lock"
	OpRelease Op = "release"
	OpSplit   Op = "split"
)

// Entry is one immutable journal row recording a successful ledger call
// attributable to a task. The journal is the system of record for where the
// money went, independent of the task's own status field.
type Entry struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"task_id"`
	EscrowID   string    `json:"escrow_id"`
	Op         Op        `json:"op"`
	Amount     int64     `json:"amount"`
	RecipientA string    `json:"recipient_a,omitempty"`
	RecipientB string    `json:"recipient_b,omitempty"`
	PctToA     int       `json:"pct_to_a,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
