package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/TaskBazaar/internal/adapter/ws"
	"github.com/Strob0t/TaskBazaar/internal/port/messagequeue"
	"github.com/Strob0t/TaskBazaar/internal/service"
)

// Pinger reports storage connectivity for the health endpoint. *pgxpool.Pool
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Engine *service.Engine
	Hub    *ws.Hub
	DB     Pinger
	Queue  messagequeue.Queue
}

// createTaskRequest carries the dual tokens of a task creation command.
type createTaskRequest struct {
	TaskToken   string `json:"task_token"`
	EscrowToken string `json:"escrow_token"`
}

// tokenRequest carries the single signed token of a lifecycle command.
type tokenRequest struct {
	Token string `json:"token"`
}

// uploadAssetRequest carries deliverable metadata; the worker token travels
// in the Authorization header.
type uploadAssetRequest struct {
	Filename    string `json:"filename"`
	ContentHash string `json:"content_hash"`
}

// CreateTask handles POST /api/v1/tasks.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[createTaskRequest](w, r)
	if !ok {
		return
	}

	t, err := h.Engine.CreateTask(r.Context(), req.TaskToken, req.EscrowToken)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTasks handles GET /api/v1/tasks.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Engine.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// GetTask handles GET /api/v1/tasks/{id}.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Engine.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// SubmitBid handles POST /api/v1/tasks/{id}/bids.
func (h *Handlers) SubmitBid(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tokenRequest](w, r)
	if !ok {
		return
	}

	b, err := h.Engine.SubmitBid(r.Context(), urlParam(r, "id"), req.Token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// ListBids handles GET /api/v1/tasks/{id}/bids. While the task is open the
// poster's token travels as a bearer header; afterwards the list is public.
func (h *Handlers) ListBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.Engine.Bids(r.Context(), urlParam(r, "id"), bearerToken(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

// AcceptBid handles POST /api/v1/tasks/{id}/accept.
func (h *Handlers) AcceptBid(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tokenRequest](w, r)
	if !ok {
		return
	}

	t, err := h.Engine.AcceptBid(r.Context(), urlParam(r, "id"), req.Token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UploadAsset handles POST /api/v1/tasks/{id}/assets.
func (h *Handlers) UploadAsset(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[uploadAssetRequest](w, r)
	if !ok {
		return
	}

	a, err := h.Engine.UploadAsset(r.Context(), urlParam(r, "id"), bearerToken(r), req.Filename, req.ContentHash)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ListAssets handles GET /api/v1/tasks/{id}/assets.
func (h *Handlers) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Engine.Assets(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

// SubmitDeliverable handles POST /api/v1/tasks/{id}/submit.
func (h *Handlers) SubmitDeliverable(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tokenRequest](w, r)
	if !ok {
		return
	}

	t, err := h.Engine.SubmitDeliverable(r.Context(), urlParam(r, "id"), req.Token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Approve handles POST /api/v1/tasks/{id}/approve.
func (h *Handlers) Approve(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tokenRequest](w, r)
	if !ok {
		return
	}

	t, err := h.Engine.Approve(r.Context(), urlParam(r, "id"), req.Token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Dispute handles POST /api/v1/tasks/{id}/dispute. The disputed claim text
// is part of the signed payload, not the request body.
func (h *Handlers) Dispute(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tokenRequest](w, r)
	if !ok {
		return
	}

	t, err := h.Engine.Dispute(r.Context(), urlParam(r, "id"), req.Token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ApplyRuling handles POST /api/v1/internal/tasks/{id}/ruling, invoked by
// the dispute collaborator with a platform-signed token.
func (h *Handlers) ApplyRuling(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tokenRequest](w, r)
	if !ok {
		return
	}

	t, err := h.Engine.ApplyRuling(r.Context(), urlParam(r, "id"), req.Token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Cancel handles POST /api/v1/tasks/{id}/cancel.
func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tokenRequest](w, r)
	if !ok {
		return
	}

	t, err := h.Engine.Cancel(r.Context(), urlParam(r, "id"), req.Token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// EscrowLog handles GET /api/v1/tasks/{id}/escrow-log.
func (h *Handlers) EscrowLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Engine.EscrowLog(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	resp := map[string]any{"status": "ok"}

	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp["database"] = "ok"
		}
	}
	if h.Queue != nil {
		if h.Queue.IsConnected() {
			resp["queue"] = "ok"
		} else {
			resp["status"] = "degraded"
			resp["queue"] = "disconnected"
		}
	}
	if h.Hub != nil {
		resp["ws_connections"] = h.Hub.ConnectionCount()
	}

	writeJSON(w, status, resp)
}
