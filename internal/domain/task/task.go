// Package task defines the Task domain entity and its lifecycle rules.
package task

import "time"

// Status represents the current state of a task in the marketplace.
type Status string

const (
	StatusOpen      Status = "open"
	StatusAccepted  Status = "accepted"
	StatusExecution Status = "execution"
	StatusReview    Status = "review"
	StatusDisputed  Status = "disputed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusRuled     Status = "ruled"
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusExpired, StatusRuled:
		return true
	}
	return false
}

// Task represents a paid work item posted by an agent.
//
// Reward is fixed at creation and equals the escrow-locked amount for the
// task's entire non-terminal lifetime. Phase timestamps are nil until the
// corresponding transition happens and immutable once set.
type Task struct {
	ID       string `json:"id"`
	PosterID string `json:"poster_id"`
	WorkerID string `json:"worker_id,omitempty"`
	Title    string `json:"title"`
	Spec     string `json:"spec"`
	Reward   int64  `json:"reward"`
	EscrowID string `json:"escrow_id"`
	Status   Status `json:"status"`
	BidCount int    `json:"bid_count"`

	BiddingDeadlineSeconds   int64 `json:"bidding_deadline_seconds"`
	ExecutionDeadlineSeconds int64 `json:"execution_deadline_seconds"`
	ReviewDeadlineSeconds    int64 `json:"review_deadline_seconds"`

	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	DisputedAt  *time.Time `json:"disputed_at,omitempty"`
	RuledAt     *time.Time `json:"ruled_at,omitempty"`
}

// CreateRequest holds the fields of a verified task-intent payload needed to
// create a new task.
type CreateRequest struct {
	ID                       string
	PosterID                 string
	Title                    string
	Spec                     string
	Reward                   int64
	BiddingDeadlineSeconds   int64
	ExecutionDeadlineSeconds int64
	ReviewDeadlineSeconds    int64
}
