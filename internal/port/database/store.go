// Package database defines the persistence port for the marketplace.
package database

import (
	"context"

	"github.com/Strob0t/TaskBazaar/internal/domain/asset"
	"github.com/Strob0t/TaskBazaar/internal/domain/bid"
	"github.com/Strob0t/TaskBazaar/internal/domain/escrow"
	"github.com/Strob0t/TaskBazaar/internal/domain/task"
)

// Store is the port interface for tasks, bids, assets and the escrow journal.
//
// Implementations must enforce uniqueness at the storage layer: InsertTask
// fails with domain.ErrConflict when the task ID exists, InsertBid fails with
// domain.ErrConflict for a duplicate (task_id, bidder_id) pair. Transition
// applies a conditional update and fails with domain.ErrConflict when the
// task's stored status no longer matches the expected one, which is what
// serializes concurrent mutations of a single task.
type Store interface {
	InsertTask(ctx context.Context, t *task.Task) error
	GetTask(ctx context.Context, id string) (*task.Task, error)
	ListTasks(ctx context.Context) ([]task.Task, error)

	// Transition persists t's status and phase fields only if the stored
	// status still equals from.
	Transition(ctx context.Context, t *task.Task, from task.Status) error

	// InsertBid stores b and increments the task's bid_count in one
	// transaction.
	InsertBid(ctx context.Context, b *bid.Bid) error
	GetBid(ctx context.Context, id string) (*bid.Bid, error)
	ListBids(ctx context.Context, taskID string) ([]bid.Bid, error)
	MarkBidAccepted(ctx context.Context, id string) error

	InsertAsset(ctx context.Context, a *asset.Asset) error
	ListAssets(ctx context.Context, taskID string) ([]asset.Asset, error)
	CountAssets(ctx context.Context, taskID string) (int, error)

	// AppendEscrowEntry appends an immutable journal row. The entry's task
	// ID may have no task row: a lock is journaled before the task insert,
	// and a compensating release after a failed one. Implementations must
	// not require the task to exist.
	AppendEscrowEntry(ctx context.Context, e *escrow.Entry) error
	ListEscrowEntries(ctx context.Context, taskID string) ([]escrow.Entry, error)
}
