package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	if h.Hub != nil {
		r.Get("/ws", h.Hub.HandleWS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Tasks
		r.Post("/tasks", h.CreateTask)
		r.Get("/tasks", h.ListTasks)
		r.Get("/tasks/{id}", h.GetTask)

		// Bidding
		r.Post("/tasks/{id}/bids", h.SubmitBid)
		r.Get("/tasks/{id}/bids", h.ListBids)
		r.Post("/tasks/{id}/accept", h.AcceptBid)

		// Delivery
		r.Post("/tasks/{id}/assets", h.UploadAsset)
		r.Get("/tasks/{id}/assets", h.ListAssets)
		r.Post("/tasks/{id}/submit", h.SubmitDeliverable)

		// Resolution
		r.Post("/tasks/{id}/approve", h.Approve)
		r.Post("/tasks/{id}/dispute", h.Dispute)
		r.Post("/tasks/{id}/cancel", h.Cancel)

		// Escrow journal
		r.Get("/tasks/{id}/escrow-log", h.EscrowLog)

		// Inbound ruling callback from the dispute collaborator. The token
		// must be platform-signed; the engine enforces the signer.
		r.Post("/internal/tasks/{id}/ruling", h.ApplyRuling)
	})
}
