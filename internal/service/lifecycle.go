package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/TaskBazaar/internal/adapter/otel"
	"github.com/Strob0t/TaskBazaar/internal/adapter/ws"
	"github.com/Strob0t/TaskBazaar/internal/config"
	"github.com/Strob0t/TaskBazaar/internal/domain"
	"github.com/Strob0t/TaskBazaar/internal/domain/event"
	"github.com/Strob0t/TaskBazaar/internal/domain/task"
	"github.com/Strob0t/TaskBazaar/internal/port/arbiter"
	"github.com/Strob0t/TaskBazaar/internal/port/cache"
	"github.com/Strob0t/TaskBazaar/internal/port/database"
	"github.com/Strob0t/TaskBazaar/internal/port/messagequeue"
)

// Token action values. A signed payload's "action" field must equal the
// value for the endpoint it is presented to.
const (
	actionCreateTask        = "create_task"
	actionEscrowConsent     = "escrow_consent"
	actionSubmitBid         = "submit_bid"
	actionAcceptBid         = "accept_bid"
	actionUploadAsset       = "upload_asset"
	actionSubmitDeliverable = "submit_deliverable"
	actionApprove           = "approve"
	actionDispute           = "dispute"
	actionApplyRuling       = "apply_ruling"
	actionCancel            = "cancel"
	actionListBids          = "list_bids"
)

// Broadcaster pushes events to connected websocket watchers.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// Engine is the task lifecycle orchestrator. Every command authenticates its
// token(s), loads the task, resolves the effective status against wall-clock
// time, validates the transition and only then touches the ledger and the
// store. Per-task serialization comes from the store's conditional update,
// not from an in-process lock, so multiple engine instances can share one
// store.
type Engine struct {
	store    database.Store
	escrow   *EscrowCoordinator
	auth     *Authenticator
	arbiter  arbiter.Filer
	queue    messagequeue.Queue
	hub      Broadcaster
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *otel.Metrics
	limits   config.Limits

	// platformSignerID is the identity allowed to apply dispute rulings.
	platformSignerID string

	now func() time.Time
}

// NewEngine creates a new lifecycle engine.
func NewEngine(store database.Store, esc *EscrowCoordinator, auth *Authenticator, limits config.Limits, platformSignerID string) *Engine {
	return &Engine{
		store:            store,
		escrow:           esc,
		auth:             auth,
		limits:           limits,
		platformSignerID: platformSignerID,
		now:              time.Now,
	}
}

// SetQueue attaches the message queue for domain-event publication.
func (e *Engine) SetQueue(q messagequeue.Queue) { e.queue = q }

// SetBroadcaster attaches the websocket hub.
func (e *Engine) SetBroadcaster(b Broadcaster) { e.hub = b }

// SetArbiter attaches the dispute collaborator client.
func (e *Engine) SetArbiter(f arbiter.Filer) { e.arbiter = f }

// SetMetrics attaches metric instruments.
func (e *Engine) SetMetrics(m *otel.Metrics) { e.metrics = m }

// SetCache attaches a cache for terminal-task reads. Terminal tasks are
// immutable, so cached entries can never go stale.
func (e *Engine) SetCache(c cache.Cache, ttl time.Duration) {
	e.cache = c
	e.cacheTTL = ttl
}

// SetNow overrides the engine's clock.
func (e *Engine) SetNow(now func() time.Time) {
	e.now = now
	e.escrow.now = now
}

// Get returns a task by ID with its deadline-evaluated status. A terminal
// task is cached only once its status is persisted: a read whose settlement
// could not complete must stay uncached so a later read retries it.
func (e *Engine) Get(ctx context.Context, id string) (*task.Task, error) {
	if t, ok := e.cachedTask(ctx, id); ok {
		return t, nil
	}

	t, err := e.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.refresh(ctx, t) {
		e.cacheTerminal(ctx, t)
	}
	return t, nil
}

// List returns all tasks with deadline-evaluated statuses.
func (e *Engine) List(ctx context.Context) ([]task.Task, error) {
	tasks, err := e.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		e.refresh(ctx, &tasks[i])
	}
	return tasks, nil
}

// loadTask fetches a task and applies any pending time-triggered transition
// before the caller validates a command against its status.
func (e *Engine) loadTask(ctx context.Context, id string) (*task.Task, error) {
	t, err := e.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	e.refresh(ctx, t)
	return t, nil
}

// refresh lazily applies a time-triggered transition. Deadline evaluation
// itself is pure; when it reports a new status the escrow is settled first
// and the status persisted after, under a conditional update so concurrent
// evaluators race safely. If the ledger is unreachable the task keeps its
// effective status in the response but nothing is persisted; a later access
// retries the settlement.
//
// The return value reports whether t now reflects persisted state. False
// means the settlement is still pending: the caller must not cache t, and
// the unpersisted terminal status exists only in this response.
func (e *Engine) refresh(ctx context.Context, t *task.Task) bool {
	eff := task.EffectiveStatus(t, e.now())
	if eff == t.Status {
		return true
	}

	var recipient string
	var typ event.Type
	switch eff {
	case task.StatusCancelled:
		recipient, typ = t.PosterID, event.TypeTaskCancelled
	case task.StatusExpired:
		recipient, typ = t.PosterID, event.TypeTaskExpired
	case task.StatusCompleted:
		recipient, typ = t.WorkerID, event.TypeTaskApproved
	default:
		return true
	}

	if err := e.escrow.Release(ctx, t.ID, t.EscrowID, recipient, t.Reward); err != nil {
		if !errors.Is(err, domain.ErrEscrowResolved) {
			slog.Error("deadline settlement: escrow release failed",
				"task_id", t.ID, "status", eff, "error", err)
			t.Status = eff
			return false
		}
		// Already released by a concurrent evaluator; just persist.
	}

	from := t.Status
	t.Status = eff
	if err := e.store.Transition(ctx, t, from); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Another instance applied a transition first; its row wins.
			if cur, gerr := e.store.GetTask(ctx, t.ID); gerr == nil {
				*t = *cur
				return true
			}
			return false
		}
		slog.Error("deadline settlement: persist failed", "task_id", t.ID, "error", err)
		return false
	}

	if e.metrics != nil {
		e.metrics.TasksSettled.Add(ctx, 1)
	}
	e.emit(ctx, typ, t, messagequeue.SubjectTaskStatus, messagequeue.SubjectSettled)
	e.cacheTerminal(ctx, t)
	return true
}

// emit publishes a lifecycle event to the given queue subjects and mirrors
// the status change to websocket watchers. Publication failures are logged,
// never surfaced: the store is the source of truth and consumers resync from
// it.
func (e *Engine) emit(ctx context.Context, typ event.Type, t *task.Task, subjects ...string) {
	if e.queue != nil {
		ev := event.TaskEvent{
			ID:         uuid.NewString(),
			Type:       typ,
			TaskID:     t.ID,
			Status:     string(t.Status),
			PosterID:   t.PosterID,
			WorkerID:   t.WorkerID,
			Reward:     t.Reward,
			OccurredAt: e.now(),
		}
		if data, err := json.Marshal(ev); err == nil {
			for _, subject := range subjects {
				if err := e.queue.Publish(ctx, subject, data); err != nil {
					slog.Error("publish task event", "subject", subject, "task_id", t.ID, "error", err)
				}
			}
		}
	}

	if e.hub != nil {
		e.hub.BroadcastEvent(ctx, ws.EventTaskStatus, ws.TaskStatusEvent{
			TaskID:   t.ID,
			Status:   string(t.Status),
			WorkerID: t.WorkerID,
		})
	}
}

func cacheKey(id string) string { return "task:" + id }

func (e *Engine) cachedTask(ctx context.Context, id string) (*task.Task, bool) {
	if e.cache == nil {
		return nil, false
	}
	data, ok, err := e.cache.Get(ctx, cacheKey(id))
	if err != nil || !ok {
		return nil, false
	}
	var t task.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, false
	}
	return &t, true
}

func (e *Engine) cacheTerminal(ctx context.Context, t *task.Task) {
	if e.cache == nil || !t.Status.Terminal() {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, cacheKey(t.ID), data, e.cacheTTL); err != nil {
		slog.Debug("cache terminal task", "task_id", t.ID, "error", err)
	}
}
