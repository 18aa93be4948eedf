package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Strob0t/TaskBazaar/internal/adapter/otel"
	"github.com/Strob0t/TaskBazaar/internal/domain"
	"github.com/Strob0t/TaskBazaar/internal/domain/event"
	"github.com/Strob0t/TaskBazaar/internal/domain/task"
	"github.com/Strob0t/TaskBazaar/internal/port/messagequeue"
)

// CreateTask creates a task from a dual-token command: a task-intent token
// describing the work and an escrow-consent token authorizing payment. The
// two payloads must agree byte-for-byte on task_id and reward, and both must
// be signed by the poster.
//
// The operation is a two-step saga: lock escrow, then insert the task row.
// If the insert fails for any reason other than a duplicate ID, the engine
// compensates by releasing the just-locked escrow back to the poster. A
// duplicate-ID conflict does not compensate: the ledger dedups locks by task
// ID, so the escrow belongs to the task that won the insert race.
func (e *Engine) CreateTask(ctx context.Context, taskToken, escrowToken string) (*task.Task, error) {
	tc, err := e.auth.VerifyAction(ctx, taskToken, actionCreateTask)
	if err != nil {
		return nil, err
	}
	ec, err := e.auth.VerifyAction(ctx, escrowToken, actionEscrowConsent)
	if err != nil {
		return nil, err
	}
	if err := CrossCheck(tc, ec, "task_id", "reward"); err != nil {
		return nil, err
	}
	if tc.SignerID != ec.SignerID {
		return nil, fmt.Errorf("escrow consent signed by %q, task intent by %q: %w",
			ec.SignerID, tc.SignerID, domain.ErrTokenMismatch)
	}

	req, err := e.parseCreatePayload(tc)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.StartCommandSpan(ctx, "create", req.ID)
	defer span.End()

	// Fast-fail on a known duplicate before locking funds. The unique
	// insert below is what actually guarantees one winner under races.
	if _, err := e.store.GetTask(ctx, req.ID); err == nil {
		return nil, fmt.Errorf("task %s already exists: %w", req.ID, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	escrowID, err := e.escrow.Lock(ctx, req.PosterID, req.Reward, req.ID)
	if err != nil {
		return nil, err
	}

	t := &task.Task{
		ID:                       req.ID,
		PosterID:                 req.PosterID,
		Title:                    req.Title,
		Spec:                     req.Spec,
		Reward:                   req.Reward,
		EscrowID:                 escrowID,
		Status:                   task.StatusOpen,
		BiddingDeadlineSeconds:   req.BiddingDeadlineSeconds,
		ExecutionDeadlineSeconds: req.ExecutionDeadlineSeconds,
		ReviewDeadlineSeconds:    req.ReviewDeadlineSeconds,
		CreatedAt:                e.now().UTC(),
	}

	if err := e.store.InsertTask(ctx, t); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// A concurrent create with the same ID won. Its lock call and
			// ours deduped to the same escrow, which now belongs to the
			// winning row, so there is nothing to compensate.
			return nil, err
		}

		if relErr := e.escrow.Release(ctx, req.ID, escrowID, req.PosterID, req.Reward); relErr != nil {
			slog.Error("task insert failed and compensating escrow release failed",
				"task_id", req.ID, "escrow_id", escrowID, "insert_error", err, "release_error", relErr)
			if e.metrics != nil {
				e.metrics.Reconciliation.Add(ctx, 1)
			}
			return nil, fmt.Errorf("task %s: escrow %s may be dangling: %w",
				req.ID, escrowID, domain.ErrReconciliation)
		}
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.TasksCreated.Add(ctx, 1)
	}
	e.emit(ctx, event.TypeTaskCreated, t, messagequeue.SubjectTaskCreated)
	return t, nil
}

// parseCreatePayload extracts and bounds-checks the task fields of a
// verified task-intent payload.
func (e *Engine) parseCreatePayload(tc *Claims) (*task.CreateRequest, error) {
	req := &task.CreateRequest{PosterID: tc.SignerID}

	var err error
	if req.ID, err = tc.String("task_id"); err != nil {
		return nil, err
	}
	if req.Title, err = tc.String("title"); err != nil {
		return nil, err
	}
	if req.Spec, err = tc.String("spec"); err != nil {
		return nil, err
	}
	if req.Reward, err = tc.Int64("reward"); err != nil {
		return nil, err
	}
	if req.BiddingDeadlineSeconds, err = tc.Int64("bidding_deadline_seconds"); err != nil {
		return nil, err
	}
	if req.ExecutionDeadlineSeconds, err = tc.Int64("execution_deadline_seconds"); err != nil {
		return nil, err
	}
	if req.ReviewDeadlineSeconds, err = tc.Int64("review_deadline_seconds"); err != nil {
		return nil, err
	}

	switch {
	case req.ID == "":
		return nil, fmt.Errorf("task_id is empty: %w", domain.ErrValidation)
	case req.Reward <= 0:
		return nil, fmt.Errorf("reward must be positive: %w", domain.ErrValidation)
	case req.Title == "" || len(req.Title) > e.limits.MaxTitleLen:
		return nil, fmt.Errorf("title must be 1-%d bytes: %w", e.limits.MaxTitleLen, domain.ErrValidation)
	case len(req.Spec) > e.limits.MaxSpecLen:
		return nil, fmt.Errorf("spec exceeds %d bytes: %w", e.limits.MaxSpecLen, domain.ErrValidation)
	case req.BiddingDeadlineSeconds <= 0 || req.ExecutionDeadlineSeconds <= 0 || req.ReviewDeadlineSeconds <= 0:
		return nil, fmt.Errorf("deadline durations must be positive: %w", domain.ErrValidation)
	}
	return req, nil
}
