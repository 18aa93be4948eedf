package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/TaskBazaar/internal/domain/asset"
	"github.com/Strob0t/TaskBazaar/internal/domain/escrow"
)

func (s *Store) InsertAsset(ctx context.Context, a *asset.Asset) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO assets (id, task_id, uploader_id, filename, content_hash, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.TaskID, a.UploaderID, a.Filename, a.ContentHash, a.UploadedAt); err != nil {
		return fmt.Errorf("insert asset for task %s: %w", a.TaskID, err)
	}
	return nil
}

func (s *Store) ListAssets(ctx context.Context, taskID string) ([]asset.Asset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, uploader_id, filename, content_hash, uploaded_at
		 FROM assets WHERE task_id = $1 ORDER BY uploaded_at ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []asset.Asset
	for rows.Next() {
		var a asset.Asset
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UploaderID, &a.Filename, &a.ContentHash, &a.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *Store) CountAssets(ctx context.Context, taskID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM assets WHERE task_id = $1`, taskID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count assets for task %s: %w", taskID, err)
	}
	return n, nil
}

// AppendEscrowEntry records a successful ledger call in the immutable escrow
// journal. Entries are never updated or deleted, and an entry may reference
// a task ID with no task row: the lock entry precedes the insert and a
// compensating release can outlive a failed one.
func (s *Store) AppendEscrowEntry(ctx context.Context, e *escrow.Entry) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO escrow_log (id, task_id, escrow_id, op, amount, recipient_a, recipient_b, pct_to_a, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.TaskID, e.EscrowID, string(e.Op), e.Amount,
		nullIfEmpty(e.RecipientA), nullIfEmpty(e.RecipientB), e.PctToA, e.CreatedAt); err != nil {
		return fmt.Errorf("append escrow entry for task %s: %w", e.TaskID, err)
	}
	return nil
}

func (s *Store) ListEscrowEntries(ctx context.Context, taskID string) ([]escrow.Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, escrow_id, op, amount,
		        COALESCE(recipient_a, ''), COALESCE(recipient_b, ''), COALESCE(pct_to_a, 0), created_at
		 FROM escrow_log WHERE task_id = $1 ORDER BY created_at ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list escrow entries: %w", err)
	}
	defer rows.Close()

	var entries []escrow.Entry
	for rows.Next() {
		var e escrow.Entry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.EscrowID, &e.Op, &e.Amount,
			&e.RecipientA, &e.RecipientB, &e.PctToA, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan escrow entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
