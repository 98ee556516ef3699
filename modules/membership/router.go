package membership

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router assembles the membership HTTP surface. The webhook endpoint stays
// outside the auth middleware: its deliveries are authenticated by the
// processor signature, not by a caller token.
func (h *Handler) Router(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/webhooks/billing", h.handleWebhook)

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Route("/tiers", func(r chi.Router) {
			r.Post("/", h.handleCreateTier)
			r.Get("/", h.handleListTiers)
			r.Patch("/{tierID}", h.handleUpdateTier)
			r.Delete("/{tierID}", h.handleDeleteTier)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", h.handleStartCheckout)
			r.Get("/", h.handleListMySubscriptions)
			r.Post("/{subscriptionID}/cancel", h.handleCancel)
			r.Post("/{subscriptionID}/pause", h.handlePause)
			r.Post("/{subscriptionID}/resume", h.handleResume)
		})

		r.Get("/subscribers", h.handleListSubscribers)
	})

	return r
}
