package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/TaskBazaar/internal/adapter/otel"
	"github.com/Strob0t/TaskBazaar/internal/domain"
	"github.com/Strob0t/TaskBazaar/internal/domain/escrow"
	"github.com/Strob0t/TaskBazaar/internal/port/database"
	"github.com/Strob0t/TaskBazaar/internal/port/ledger"
	"github.com/Strob0t/TaskBazaar/internal/resilience"
)

// EscrowCoordinator wraps the ledger collaborator with retry semantics and
// the escrow journal. Every successful money movement appends an immutable
// journal row attributable to the task, independent of the task's own status
// field.
type EscrowCoordinator struct {
	ledger     ledger.Ledger
	store      database.Store
	metrics    *otel.Metrics
	retryDelay time.Duration
	now        func() time.Time
}

// NewEscrowCoordinator creates a new EscrowCoordinator. metrics may be nil.
func NewEscrowCoordinator(l ledger.Ledger, store database.Store, metrics *otel.Metrics) *EscrowCoordinator {
	return &EscrowCoordinator{
		ledger:     l,
		store:      store,
		metrics:    metrics,
		retryDelay: 250 * time.Millisecond,
		now:        time.Now,
	}
}

// Lock reserves amount coins from payer for the task and returns the escrow
// ID. An ambiguous ledger failure is retried exactly once: the ledger dedups
// lock operations by task ID, so the retry either returns the escrow created
// by the first attempt or locks fresh, never twice.
func (c *EscrowCoordinator) Lock(ctx context.Context, payerID string, amount int64, taskID string) (string, error) {
	ctx, span := otel.StartLedgerSpan(ctx, "lock", taskID)
	defer span.End()

	var escrowID string
	err := resilience.RetryOnce(ctx, domain.ErrLedgerUnavailable, c.retryDelay, func() error {
		var err error
		escrowID, err = c.ledger.Lock(ctx, payerID, amount, taskID)
		return err
	})
	if err != nil {
		return "", err
	}

	if c.metrics != nil {
		c.metrics.EscrowLocked.Record(ctx, amount)
	}
	c.journal(ctx, &escrow.Entry{
		TaskID:   taskID,
		EscrowID: escrowID,
		Op:       escrow.OpLock,
		Amount:   amount,
	})
	return escrowID, nil
}

// Release pays the full escrow amount to a single recipient.
func (c *EscrowCoordinator) Release(ctx context.Context, taskID, escrowID, recipientID string, amount int64) error {
	ctx, span := otel.StartLedgerSpan(ctx, "release", taskID)
	defer span.End()

	if err := c.ledger.Release(ctx, escrowID, recipientID); err != nil {
		return err
	}

	if c.metrics != nil {
		c.metrics.EscrowReleased.Record(ctx, amount)
	}
	c.journal(ctx, &escrow.Entry{
		TaskID:     taskID,
		EscrowID:   escrowID,
		Op:         escrow.OpRelease,
		Amount:     amount,
		RecipientA: recipientID,
	})
	return nil
}

// Split divides the escrow between two recipients per the floor/remainder
// rule: floor(total*pctToA/100) to A, the rest to B.
func (c *EscrowCoordinator) Split(ctx context.Context, taskID, escrowID, recipientA, recipientB string, pctToA int, total int64) error {
	ctx, span := otel.StartLedgerSpan(ctx, "split", taskID)
	defer span.End()

	if err := c.ledger.Split(ctx, escrowID, recipientA, recipientB, pctToA); err != nil {
		return err
	}

	if c.metrics != nil {
		c.metrics.EscrowReleased.Record(ctx, total)
	}
	c.journal(ctx, &escrow.Entry{
		TaskID:     taskID,
		EscrowID:   escrowID,
		Op:         escrow.OpSplit,
		Amount:     total,
		RecipientA: recipientA,
		RecipientB: recipientB,
		PctToA:     pctToA,
	})
	return nil
}

// journal appends an immutable entry recording a ledger call that already
// succeeded. The money has moved, so a journal failure must not fail the
// operation; it is logged and flagged for reconciliation instead.
func (c *EscrowCoordinator) journal(ctx context.Context, e *escrow.Entry) {
	e.ID = uuid.NewString()
	e.CreatedAt = c.now()

	if err := c.store.AppendEscrowEntry(ctx, e); err != nil {
		slog.Error("escrow journal append failed, reconciliation required",
			"task_id", e.TaskID, "escrow_id", e.EscrowID, "op", e.Op, "error", err)
		if c.metrics != nil {
			c.metrics.Reconciliation.Add(ctx, 1)
		}
	}
}

// SplitAmounts computes the floor/remainder division of total between A and
// B. The two amounts always sum to total, so 100% of the funds are
// distributed with no residue.
func SplitAmounts(total int64, pctToA int) (toA, toB int64) {
	toA = total * int64(pctToA) / 100
	return toA, total - toA
}
