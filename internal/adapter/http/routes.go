package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router. Trace IDs
// are assigned by middleware.TraceID, which the caller installs first so
// that request logs carry them too.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/query", h.Query)

		r.Post("/approvals", h.Approve)
		r.Get("/approvals", h.ListApprovals)
		r.Get("/approvals/{id}", h.GetApproval)
		r.Get("/approvals/{id}/events", h.ApprovalEvents)

		r.Get("/audit", h.AuditTrail)
	})
}
