// Package event defines marketplace domain events published to the queue.
package event

import "time"

// Type identifies the kind of marketplace event.
type Type string

const (
	TypeTaskCreated   Type = "task.created"
	TypeBidSubmitted  Type = "task.bid_submitted"
	TypeBidAccepted   Type = "task.bid_accepted"
	TypeDeliverable   Type = "task.deliverable_submitted"
	TypeTaskApproved  Type = "task.approved"
	TypeTaskDisputed  Type = "task.disputed"
	TypeTaskRuled     Type = "task.ruled"
	TypeTaskCancelled Type = "task.cancelled"
	TypeTaskExpired   Type = "task.expired"
)

// TaskEvent is the envelope for every task lifecycle event. Consumers
// (reputation, notifications) subscribe out of process; the engine only
// publishes.
type TaskEvent struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	TaskID     string    `json:"task_id"`
	Status     string    `json:"status"`
	PosterID   string    `json:"poster_id"`
	WorkerID   string    `json:"worker_id,omitempty"`
	Reward     int64     `json:"reward"`
	OccurredAt time.Time `json:"occurred_at"`
}
