package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventTaskStatus = "task.status"
	EventTaskBid    = "task.bid"
)

// TaskStatusEvent is broadcast when a task's status changes.
type TaskStatusEvent struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	WorkerID string `json:"worker_id,omitempty"`
}

// TaskBidEvent is broadcast when a bid is submitted on a task.
type TaskBidEvent struct {
	TaskID   string `json:"task_id"`
	BidCount int    `json:"bid_count"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
