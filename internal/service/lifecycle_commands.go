package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Strob0t/TaskBazaar/internal/adapter/otel"
	"github.com/Strob0t/TaskBazaar/internal/adapter/ws"
	"github.com/Strob0t/TaskBazaar/internal/domain"
	"github.com/Strob0t/TaskBazaar/internal/domain/asset"
	"github.com/Strob0t/TaskBazaar/internal/domain/bid"
	"github.com/Strob0t/TaskBazaar/internal/domain/escrow"
	"github.com/Strob0t/TaskBazaar/internal/domain/event"
	"github.com/Strob0t/TaskBazaar/internal/domain/task"
	"github.com/Strob0t/TaskBazaar/internal/port/messagequeue"
)

// verifyTaskToken verifies a single-token command and checks the payload's
// task_id against the task addressed by the request path, before any state
// is loaded.
func (e *Engine) verifyTaskToken(ctx context.Context, token, action, taskID string) (*Claims, error) {
	c, err := e.auth.VerifyAction(ctx, token, action)
	if err != nil {
		return nil, err
	}
	id, err := c.String("task_id")
	if err != nil {
		return nil, err
	}
	if id != taskID {
		return nil, fmt.Errorf("token is for task %q, not %q: %w", id, taskID, domain.ErrValidation)
	}
	return c, nil
}

// SubmitBid records a bid on an open task. The bid amount comes from the
// signed payload. A bidder gets at most one bid per task, enforced by the
// store's unique key, and the poster cannot bid on their own task.
func (e *Engine) SubmitBid(ctx context.Context, taskID, token string) (*bid.Bid, error) {
	c, err := e.verifyTaskToken(ctx, token, actionSubmitBid, taskID)
	if err != nil {
		return nil, err
	}
	amount, err := c.Int64("amount")
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("bid amount must be positive: %w", domain.ErrValidation)
	}

	ctx, span := otel.StartCommandSpan(ctx, "submit_bid", taskID)
	defer span.End()

	t, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusOpen {
		return nil, fmt.Errorf("task %s is %s, bidding closed: %w", t.ID, t.Status, domain.ErrConflict)
	}
	if c.SignerID == t.PosterID {
		return nil, fmt.Errorf("poster cannot bid on own task: %w", domain.ErrForbidden)
	}

	b := &bid.Bid{
		ID:          uuid.NewString(),
		TaskID:      t.ID,
		BidderID:    c.SignerID,
		Amount:      amount,
		SubmittedAt: e.now().UTC(),
	}
	if err := e.store.InsertBid(ctx, b); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("bidder %s already bid on task %s: %w", c.SignerID, t.ID, domain.ErrConflict)
		}
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.BidsSubmitted.Add(ctx, 1)
	}
	e.emitBid(ctx, event.TypeBidSubmitted, t, t.BidCount+1)
	return b, nil
}

// AcceptBid lets the poster pick a bid. The task moves straight into
// execution with the bidder as worker; accepted_at anchors the execution
// deadline.
func (e *Engine) AcceptBid(ctx context.Context, taskID, token string) (*task.Task, error) {
	c, err := e.verifyTaskToken(ctx, token, actionAcceptBid, taskID)
	if err != nil {
		return nil, err
	}
	bidID, err := c.String("bid_id")
	if err != nil {
		return nil, err
	}

	ctx, span := otel.StartCommandSpan(ctx, "accept_bid", taskID)
	defer span.End()

	t, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusOpen {
		return nil, fmt.Errorf("task %s is %s, cannot accept a bid: %w", t.ID, t.Status, domain.ErrConflict)
	}
	if err := RequireSigner(c, t.PosterID); err != nil {
		return nil, err
	}

	b, err := e.store.GetBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if b.TaskID != t.ID {
		return nil, fmt.Errorf("bid %s does not belong to task %s: %w", bidID, t.ID, domain.ErrValidation)
	}

	now := e.now().UTC()
	t.WorkerID = b.BidderID
	t.AcceptedAt = &now
	t.Status = task.StatusExecution
	if err := e.store.Transition(ctx, t, task.StatusOpen); err != nil {
		return nil, err
	}

	if err := e.store.MarkBidAccepted(ctx, b.ID); err != nil {
		slog.Error("mark bid accepted", "bid_id", b.ID, "error", err)
	}

	e.emit(ctx, event.TypeBidAccepted, t, messagequeue.SubjectBid, messagequeue.SubjectTaskStatus)
	return t, nil
}

// UploadAsset records deliverable metadata during execution. Only the
// assigned worker may upload.
func (e *Engine) UploadAsset(ctx context.Context, taskID, token, filename, contentHash string) (*asset.Asset, error) {
	c, err := e.verifyTaskToken(ctx, token, actionUploadAsset, taskID)
	if err != nil {
		return nil, err
	}

	t, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusExecution {
		return nil, fmt.Errorf("task %s is %s, not accepting assets: %w", t.ID, t.Status, domain.ErrConflict)
	}
	if err := RequireSigner(c, t.WorkerID); err != nil {
		return nil, err
	}

	if filename == "" || len(filename) > e.limits.MaxFilenameLen {
		return nil, fmt.Errorf("filename must be 1-%d bytes: %w", e.limits.MaxFilenameLen, domain.ErrValidation)
	}
	if contentHash == "" {
		return nil, fmt.Errorf("content_hash is empty: %w", domain.ErrValidation)
	}

	a := &asset.Asset{
		ID:          uuid.NewString(),
		TaskID:      t.ID,
		UploaderID:  c.SignerID,
		Filename:    filename,
		ContentHash: contentHash,
		UploadedAt:  e.now().UTC(),
	}
	if err := e.store.InsertAsset(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Assets lists the deliverable metadata uploaded for a task.
func (e *Engine) Assets(ctx context.Context, taskID string) ([]asset.Asset, error) {
	if _, err := e.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return e.store.ListAssets(ctx, taskID)
}

// SubmitDeliverable moves a task from execution to review. At least one
// asset must have been uploaded; submitted_at anchors the review deadline.
func (e *Engine) SubmitDeliverable(ctx context.Context, taskID, token string) (*task.Task, error) {
	c, err := e.verifyTaskToken(ctx, token, actionSubmitDeliverable, taskID)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.StartCommandSpan(ctx, "submit_deliverable", taskID)
	defer span.End()

	t, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusExecution {
		return nil, fmt.Errorf("task %s is %s, nothing to submit: %w", t.ID, t.Status, domain.ErrConflict)
	}
	if err := RequireSigner(c, t.WorkerID); err != nil {
		return nil, err
	}

	n, err := e.store.CountAssets(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("no assets uploaded: %w", domain.ErrValidation)
	}

	now := e.now().UTC()
	t.SubmittedAt = &now
	t.Status = task.StatusReview
	if err := e.store.Transition(ctx, t, task.StatusExecution); err != nil {
		return nil, err
	}

	e.emit(ctx, event.TypeDeliverable, t, messagequeue.SubjectTaskStatus)
	return t, nil
}

// Approve releases the full escrow to the worker and completes the task.
// The ledger call comes first: if it fails, no status change is visible.
func (e *Engine) Approve(ctx context.Context, taskID, token string) (*task.Task, error) {
	c, err := e.verifyTaskToken(ctx, token, actionApprove, taskID)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.StartCommandSpan(ctx, "approve", taskID)
	defer span.End()

	t, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusReview {
		return nil, fmt.Errorf("task %s is %s, not awaiting review: %w", t.ID, t.Status, domain.ErrConflict)
	}
	if err := RequireSigner(c, t.PosterID); err != nil {
		return nil, err
	}

	if err := e.escrow.Release(ctx, t.ID, t.EscrowID, t.WorkerID, t.Reward); err != nil {
		return nil, err
	}

	now := e.now().UTC()
	t.ApprovedAt = &now
	t.Status = task.StatusCompleted
	if err := e.settle(ctx, t, task.StatusReview); err != nil {
		return nil, err
	}

	e.emit(ctx, event.TypeTaskApproved, t, messagequeue.SubjectTaskStatus, messagequeue.SubjectSettled)
	e.cacheTerminal(ctx, t)
	return t, nil
}

// Dispute files a dispute with the arbiter and freezes the task in disputed.
// Escrow stays locked until the ruling arrives.
func (e *Engine) Dispute(ctx context.Context, taskID, token string) (*task.Task, error) {
	c, err := e.verifyTaskToken(ctx, token, actionDispute, taskID)
	if err != nil {
		return nil, err
	}
	claim, err := c.String("claim")
	if err != nil {
		return nil, err
	}
	if claim == "" || len(claim) > e.limits.MaxClaimLen {
		return nil, fmt.Errorf("claim must be 1-%d bytes: %w", e.limits.MaxClaimLen, domain.ErrValidation)
	}

	ctx, span := otel.StartCommandSpan(ctx, "dispute", taskID)
	defer span.End()

	t, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusReview {
		return nil, fmt.Errorf("task %s is %s, cannot dispute: %w", t.ID, t.Status, domain.ErrConflict)
	}
	if err := RequireSigner(c, t.PosterID); err != nil {
		return nil, err
	}

	if e.arbiter != nil {
		if _, err := e.arbiter.FileDispute(ctx, t.ID, claim); err != nil {
			return nil, fmt.Errorf("file dispute: %w", err)
		}
	}

	now := e.now().UTC()
	t.DisputedAt = &now
	t.Status = task.StatusDisputed
	if err := e.store.Transition(ctx, t, task.StatusReview); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			slog.Warn("dispute filed but task already left review", "task_id", t.ID)
		}
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.Disputes.Add(ctx, 1)
	}
	e.emit(ctx, event.TypeTaskDisputed, t, messagequeue.SubjectTaskStatus)
	return t, nil
}

// ApplyRuling settles a disputed task per the arbiter's worker percentage.
// Only the platform signer may invoke it. 100/0 rulings use a plain release;
// anything in between splits with the floor/remainder rule.
func (e *Engine) ApplyRuling(ctx context.Context, taskID, token string) (*task.Task, error) {
	c, err := e.verifyTaskToken(ctx, token, actionApplyRuling, taskID)
	if err != nil {
		return nil, err
	}
	if err := RequireSigner(c, e.platformSignerID); err != nil {
		return nil, err
	}
	pct64, err := c.Int64("worker_pct")
	if err != nil {
		return nil, err
	}
	if pct64 < 0 || pct64 > 100 {
		return nil, fmt.Errorf("worker_pct must be 0-100: %w", domain.ErrValidation)
	}
	workerPct := int(pct64)

	ctx, span := otel.StartCommandSpan(ctx, "apply_ruling", taskID)
	defer span.End()

	t, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusDisputed {
		return nil, fmt.Errorf("task %s is %s, no ruling to apply: %w", t.ID, t.Status, domain.ErrConflict)
	}

	switch workerPct {
	case 100:
		err = e.escrow.Release(ctx, t.ID, t.EscrowID, t.WorkerID, t.Reward)
	case 0:
		err = e.escrow.Release(ctx, t.ID, t.EscrowID, t.PosterID, t.Reward)
	default:
		err = e.escrow.Split(ctx, t.ID, t.EscrowID, t.WorkerID, t.PosterID, workerPct, t.Reward)
	}
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	t.RuledAt = &now
	t.Status = task.StatusRuled
	if err := e.settle(ctx, t, task.StatusDisputed); err != nil {
		return nil, err
	}

	e.emit(ctx, event.TypeTaskRuled, t, messagequeue.SubjectTaskStatus, messagequeue.SubjectSettled)
	e.cacheTerminal(ctx, t)
	return t, nil
}

// Cancel lets the poster withdraw an open task, releasing the escrow back.
func (e *Engine) Cancel(ctx context.Context, taskID, token string) (*task.Task, error) {
	c, err := e.verifyTaskToken(ctx, token, actionCancel, taskID)
	if err != nil {
		return nil, err
	}

	ctx, span := otel.StartCommandSpan(ctx, "cancel", taskID)
	defer span.End()

	t, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusOpen {
		return nil, fmt.Errorf("task %s is %s, cannot cancel: %w", t.ID, t.Status, domain.ErrConflict)
	}
	if err := RequireSigner(c, t.PosterID); err != nil {
		return nil, err
	}

	if err := e.escrow.Release(ctx, t.ID, t.EscrowID, t.PosterID, t.Reward); err != nil {
		return nil, err
	}

	t.Status = task.StatusCancelled
	if err := e.settle(ctx, t, task.StatusOpen); err != nil {
		return nil, err
	}

	e.emit(ctx, event.TypeTaskCancelled, t, messagequeue.SubjectTaskStatus, messagequeue.SubjectSettled)
	e.cacheTerminal(ctx, t)
	return t, nil
}

// settle persists a terminal transition whose escrow movement already
// succeeded. A failure here means the ledger and the store disagree, which
// the engine cannot undo: it is flagged for operator reconciliation instead
// of being reported as an ordinary conflict.
func (e *Engine) settle(ctx context.Context, t *task.Task, from task.Status) error {
	if err := e.store.Transition(ctx, t, from); err != nil {
		slog.Error("escrow settled but status update failed, reconciliation required",
			"task_id", t.ID, "escrow_id", t.EscrowID, "status", t.Status, "error", err)
		if e.metrics != nil {
			e.metrics.Reconciliation.Add(ctx, 1)
		}
		return fmt.Errorf("task %s: escrow resolved but status not persisted: %w", t.ID, domain.ErrReconciliation)
	}
	if e.metrics != nil {
		e.metrics.TasksSettled.Add(ctx, 1)
	}
	return nil
}

// Bids lists the bids on a task. While the task is open the list is sealed:
// only the poster, presenting a signed token, may read it. Once the task
// leaves open the list is public.
func (e *Engine) Bids(ctx context.Context, taskID, token string) ([]bid.Bid, error) {
	t, err := e.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if t.Status == task.StatusOpen {
		if token == "" {
			return nil, fmt.Errorf("bids are sealed while bidding is open: %w", domain.ErrForbidden)
		}
		c, err := e.verifyTaskToken(ctx, token, actionListBids, taskID)
		if err != nil {
			return nil, err
		}
		if err := RequireSigner(c, t.PosterID); err != nil {
			return nil, err
		}
	}

	return e.store.ListBids(ctx, taskID)
}

// EscrowLog returns the immutable journal of ledger operations for a task.
func (e *Engine) EscrowLog(ctx context.Context, taskID string) ([]escrow.Entry, error) {
	if _, err := e.store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return e.store.ListEscrowEntries(ctx, taskID)
}

// emitBid publishes a bid event and mirrors the new bid count to watchers.
func (e *Engine) emitBid(ctx context.Context, typ event.Type, t *task.Task, bidCount int) {
	if e.queue != nil {
		ev := event.TaskEvent{
			ID:         uuid.NewString(),
			Type:       typ,
			TaskID:     t.ID,
			Status:     string(t.Status),
			PosterID:   t.PosterID,
			Reward:     t.Reward,
			OccurredAt: e.now(),
		}
		if data, err := json.Marshal(ev); err == nil {
			if err := e.queue.Publish(ctx, messagequeue.SubjectBid, data); err != nil {
				slog.Error("publish bid event", "task_id", t.ID, "error", err)
			}
		}
	}

	if e.hub != nil {
		e.hub.BroadcastEvent(ctx, ws.EventTaskBid, ws.TaskBidEvent{TaskID: t.ID, BidCount: bidCount})
	}
}
