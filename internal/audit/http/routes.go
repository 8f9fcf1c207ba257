package audithttp

import (
	"github.com/go-chi/chi/v5"

	"github.com/lumenshop/lumenshop-admin/internal/permission"
)

// MountRoutes attaches the audit surface. Reading requires ReadOnly on the
// audit resource; retention pruning requires FullControl.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(h.guard.RequirePermission(permission.ResourceAuditLog, permission.ReadOnly)).
			Get("/logs", h.handleList)
		r.With(h.guard.RequirePermission(permission.ResourceAuditLog, permission.FullControl)).
			Delete("/logs", h.handlePrune)
	})
}
