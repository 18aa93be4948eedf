// Package bid defines the Bid domain entity.
package bid

import "time"

// Bid represents an offer by a worker to take on a task.
// At most one bid exists per (task_id, bidder_id) pair; the storage layer
// enforces the constraint.
type Bid struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	BidderID    string    `json:"bidder_id"`
	Amount      int64     `json:"amount"`
	SubmittedAt time.Time `json:"submitted_at"`
	Accepted    bool      `json:"accepted"`
}
