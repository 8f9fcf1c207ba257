package lockout

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumenshop/lumenshop-admin/internal/permission"
	"github.com/lumenshop/lumenshop-admin/internal/rbac"
	"github.com/lumenshop/lumenshop-admin/internal/shared"
)

// Handler exposes the admin unlock surface.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     *rbac.Guard
	validator *validator.Validate
}

// NewHandler constructs a lockout handler.
func NewHandler(logger *slog.Logger, service *Service, guard *rbac.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes attaches lockout routes. Unlocking is a FullControl operation
// on the admins resource.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequirePermission(permission.ResourceAdmins, permission.FullControl)).
		Post("/lockouts/unlock", h.handleUnlock)
}

type unlockRequest struct {
	Identifier string `json:"identifier" validate:"required,email"`
}

func (h *Handler) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req unlockRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteErrorJSON(w, http.StatusBadRequest, "valid identifier required")
		return
	}
	principal := rbac.PrincipalFromContext(r.Context())
	if principal == nil {
		shared.WriteErrorJSON(w, http.StatusForbidden, "not an admin")
		return
	}
	if err := h.service.Unlock(r.Context(), r, principal.ID, req.Identifier); err != nil {
		h.logger.Error("unlock identifier", slog.Any("error", err))
		shared.WriteErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "unlocked"})
}
