package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/TaskBazaar/internal/domain"
	"github.com/Strob0t/TaskBazaar/internal/domain/task"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const taskColumns = `id, poster_id, worker_id, title, spec, reward, escrow_id, status, bid_count,
	 bidding_deadline_seconds, execution_deadline_seconds, review_deadline_seconds,
	 created_at, accepted_at, submitted_at, approved_at, disputed_at, ruled_at`

// InsertTask persists a new task row. The primary key makes duplicate task
// IDs a constraint violation rather than a check-then-insert race; the
// violation is surfaced as domain.ErrConflict.
func (s *Store) InsertTask(ctx context.Context, t *task.Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (id, poster_id, title, spec, reward, escrow_id, status,
		   bidding_deadline_seconds, execution_deadline_seconds, review_deadline_seconds, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.PosterID, t.Title, t.Spec, t.Reward, t.EscrowID, string(t.Status),
		t.BiddingDeadlineSeconds, t.ExecutionDeadlineSeconds, t.ReviewDeadlineSeconds, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert task %s: %w", t.ID, domain.ErrConflict)
		}
		return fmt.Errorf("insert task %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context) ([]task.Task, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Transition persists the task's status and phase fields only if the stored
// status still equals from. RowsAffected()==0 means another request won the
// race (or the task vanished) and is reported as domain.ErrConflict; the
// caller distinguishes not-found by having loaded the task first.
func (s *Store) Transition(ctx context.Context, t *task.Task, from task.Status) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status = $2, worker_id = $3,
		   accepted_at = $4, submitted_at = $5, approved_at = $6, disputed_at = $7, ruled_at = $8
		 WHERE id = $1 AND status = $9`,
		t.ID, string(t.Status), nullIfEmpty(t.WorkerID),
		t.AcceptedAt, t.SubmittedAt, t.ApprovedAt, t.DisputedAt, t.RuledAt, string(from))
	if err != nil {
		return fmt.Errorf("transition task %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transition task %s from %s: %w", t.ID, from, domain.ErrConflict)
	}
	return nil
}

// --- Scanners ---

type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (task.Task, error) {
	var t task.Task
	var workerID *string
	err := row.Scan(&t.ID, &t.PosterID, &workerID, &t.Title, &t.Spec, &t.Reward, &t.EscrowID,
		&t.Status, &t.BidCount,
		&t.BiddingDeadlineSeconds, &t.ExecutionDeadlineSeconds, &t.ReviewDeadlineSeconds,
		&t.CreatedAt, &t.AcceptedAt, &t.SubmittedAt, &t.ApprovedAt, &t.DisputedAt, &t.RuledAt)
	if err != nil {
		return t, err
	}
	if workerID != nil {
		t.WorkerID = *workerID
	}
	return t, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
