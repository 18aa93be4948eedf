package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/TaskBazaar/internal/domain"
	"github.com/Strob0t/TaskBazaar/internal/domain/bid"
)

// InsertBid stores a bid and increments the task's bid_count in one
// transaction. The UNIQUE (task_id, bidder_id) constraint turns a concurrent
// duplicate bid into domain.ErrConflict instead of a check-then-insert race.
func (s *Store) InsertBid(ctx context.Context, b *bid.Bid) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.Exec(ctx,
		`INSERT INTO bids (id, task_id, bidder_id, amount, submitted_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.TaskID, b.BidderID, b.Amount, b.SubmittedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert bid for task %s by %s: %w", b.TaskID, b.BidderID, domain.ErrConflict)
		}
		return fmt.Errorf("insert bid: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE tasks SET bid_count = bid_count + 1 WHERE id = $1`, b.TaskID); err != nil {
		return fmt.Errorf("bump bid_count for task %s: %w", b.TaskID, err)
	}

	return tx.Commit(ctx)
}

func (s *Store) GetBid(ctx context.Context, id string) (*bid.Bid, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, task_id, bidder_id, amount, accepted, submitted_at
		 FROM bids WHERE id = $1`, id)

	var b bid.Bid
	if err := row.Scan(&b.ID, &b.TaskID, &b.BidderID, &b.Amount, &b.Accepted, &b.SubmittedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get bid %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get bid %s: %w", id, err)
	}
	return &b, nil
}

func (s *Store) ListBids(ctx context.Context, taskID string) ([]bid.Bid, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, bidder_id, amount, accepted, submitted_at
		 FROM bids WHERE task_id = $1 ORDER BY submitted_at ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	defer rows.Close()

	var bids []bid.Bid
	for rows.Next() {
		var b bid.Bid
		if err := rows.Scan(&b.ID, &b.TaskID, &b.BidderID, &b.Amount, &b.Accepted, &b.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (s *Store) MarkBidAccepted(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE bids SET accepted = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark bid accepted %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark bid accepted %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
