package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumenshop/lumenshop-admin/internal/audit"
	"github.com/lumenshop/lumenshop-admin/internal/permission"
	"github.com/lumenshop/lumenshop-admin/internal/shared"
)

// Handler exposes the role and override admin surface. Every route sits
// behind the guard on the admins resource, and every mutation appends a
// fail-closed audit entry.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     *Guard
	audit     *audit.Service
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, guard *Guard, auditSvc *audit.Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		guard:     guard,
		audit:     auditSvc,
		validator: validator.New(),
	}
}

// MountRoutes attaches role, admin and catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	full := h.guard.RequirePermission(permission.ResourceAdmins, permission.FullControl)
	read := h.guard.RequirePermission(permission.ResourceAdmins, permission.ReadOnly)

	r.Route("/roles", func(r chi.Router) {
		r.Use(full)
		r.Get("/", h.handleListRoles)
		r.Post("/", h.handleCreateRole)
		r.Get("/{roleID}", h.handleGetRole)
		r.Put("/{roleID}", h.handleUpdateRole)
		r.Delete("/{roleID}", h.handleDeleteRole)
		r.Get("/{roleID}/permissions", h.handleRolePermissions)
		r.Put("/{roleID}/permissions", h.handleSetRoleGrant)
	})

	r.Route("/admins", func(r chi.Router) {
		r.Use(full)
		r.Get("/", h.handleListAdmins)
		r.Put("/{adminID}/overrides", h.handleSetOverride)
		r.Put("/{adminID}/enabled", h.handleSetEnabled)
	})

	r.With(read).Get("/permissions/catalog", h.handleCatalog)
}

type roleResponse struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Grants      map[string]string `json:"grants"`
}

func toRoleResponse(role Role) roleResponse {
	grants := make(map[string]string, len(role.Grants))
	for resource, level := range role.Grants {
		grants[string(resource)] = string(level)
	}
	return roleResponse{ID: role.ID, Name: role.Name, Description: role.Description, Grants: grants}
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.serverError(w, "list roles", err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"roles": out})
}

type rolePayload struct {
	Name        string `json:"name" validate:"required,min=2,max=80"`
	Description string `json:"description" validate:"max=500"`
}

func (h *Handler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req rolePayload
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteErrorJSON(w, http.StatusBadRequest, "invalid role payload")
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description)
	if err != nil {
		if errors.Is(err, ErrNameTaken) {
			shared.WriteErrorJSON(w, http.StatusConflict, "role name taken")
			return
		}
		h.serverError(w, "create role", err)
		return
	}
	if !h.logMutation(w, r, "role.create", strconv.FormatInt(role.ID, 10), map[string]any{"name": role.Name}) {
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) handleGetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			shared.WriteErrorJSON(w, http.StatusNotFound, "role not found")
			return
		}
		h.serverError(w, "get role", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	var req rolePayload
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteErrorJSON(w, http.StatusBadRequest, "invalid role payload")
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, req.Name, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			shared.WriteErrorJSON(w, http.StatusNotFound, "role not found")
		case errors.Is(err, ErrNameTaken):
			shared.WriteErrorJSON(w, http.StatusConflict, "role name taken")
		default:
			h.serverError(w, "update role", err)
		}
		return
	}
	if !h.logMutation(w, r, "role.update", strconv.FormatInt(role.ID, 10), map[string]any{"name": role.Name}) {
		return
	}
	shared.WriteJSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrRoleInUse):
			shared.WriteErrorJSON(w, http.StatusConflict, "role in use")
		case errors.Is(err, ErrNotFound):
			shared.WriteErrorJSON(w, http.StatusNotFound, "role not found")
		default:
			h.serverError(w, "delete role", err)
		}
		return
	}
	if !h.logMutation(w, r, "role.delete", strconv.FormatInt(id, 10), nil) {
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) handleRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	perms, err := h.service.RolePermissions(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			shared.WriteErrorJSON(w, http.StatusNotFound, "role not found")
			return
		}
		h.serverError(w, "role permissions", err)
		return
	}
	out := make(map[string]string, len(perms))
	for resource, level := range perms {
		out[string(resource)] = string(level)
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"permissions": out})
}

type grantPayload struct {
	Resource string `json:"resource" validate:"required"`
	Level    string `json:"level" validate:"required"`
}

func (h *Handler) handleSetRoleGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "roleID")
	if !ok {
		return
	}
	var req grantPayload
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteErrorJSON(w, http.StatusBadRequest, "resource and level required")
		return
	}
	level, err := permission.ParseLevel(req.Level)
	if err != nil {
		shared.WriteErrorJSON(w, http.StatusBadRequest, "unknown level")
		return
	}
	resource := permission.Resource(req.Resource)
	if err := h.service.SetRoleGrant(r.Context(), id, resource, level); err != nil {
		if errors.Is(err, ErrNotFound) {
			shared.WriteErrorJSON(w, http.StatusNotFound, "role not found")
			return
		}
		if !permission.Known(resource) {
			shared.WriteErrorJSON(w, http.StatusBadRequest, "unknown resource")
			return
		}
		h.serverError(w, "set role grant", err)
		return
	}
	details := map[string]any{"resource": req.Resource, "level": string(level)}
	if !h.logMutation(w, r, "role.grant.set", strconv.FormatInt(id, 10), details) {
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

type adminResponse struct {
	ID          int64             `json:"id"`
	IdentityID  string            `json:"identity_id"`
	Email       string            `json:"email"`
	RoleID      int64             `json:"role_id"`
	IsEnabled   bool              `json:"is_enabled"`
	Requires2FA bool              `json:"requires_2fa"`
	Overrides   map[string]string `json:"overrides"`
}

func (h *Handler) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.service.ListAdmins(r.Context())
	if err != nil {
		h.serverError(w, "list admins", err)
		return
	}
	out := make([]adminResponse, 0, len(admins))
	for _, a := range admins {
		overrides := make(map[string]string, len(a.Overrides))
		for resource, level := range a.Overrides {
			overrides[string(resource)] = string(level)
		}
		out = append(out, adminResponse{
			ID:          a.ID,
			IdentityID:  a.IdentityID,
			Email:       a.Email,
			RoleID:      a.RoleID,
			IsEnabled:   a.IsEnabled,
			Requires2FA: a.Requires2FA,
			Overrides:   overrides,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"admins": out})
}

type overridePayload struct {
	Resource string  `json:"resource" validate:"required"`
	Level    *string `json:"level"`
}

func (h *Handler) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "adminID")
	if !ok {
		return
	}
	var req overridePayload
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteErrorJSON(w, http.StatusBadRequest, "resource required")
		return
	}

	var level *permission.Level
	action := "admin.override.clear"
	if req.Level != nil {
		parsed, err := permission.ParseLevel(*req.Level)
		if err != nil {
			shared.WriteErrorJSON(w, http.StatusBadRequest, "unknown level")
			return
		}
		level = &parsed
		action = "admin.override.set"
	}

	resource := permission.Resource(req.Resource)
	if err := h.service.SetAdminOverride(r.Context(), id, resource, level); err != nil {
		if errors.Is(err, ErrNotFound) {
			shared.WriteErrorJSON(w, http.StatusNotFound, "admin not found")
			return
		}
		if !permission.Known(resource) {
			shared.WriteErrorJSON(w, http.StatusBadRequest, "unknown resource")
			return
		}
		h.serverError(w, "set override", err)
		return
	}
	details := map[string]any{"resource": req.Resource}
	if level != nil {
		details["level"] = string(*level)
	}
	if !h.logMutation(w, r, action, strconv.FormatInt(id, 10), details) {
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type enabledPayload struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (h *Handler) handleSetEnabled(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "adminID")
	if !ok {
		return
	}
	var req enabledPayload
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteErrorJSON(w, http.StatusBadRequest, "enabled required")
		return
	}
	if err := h.service.SetAdminEnabled(r.Context(), id, *req.Enabled); err != nil {
		if errors.Is(err, ErrNotFound) {
			shared.WriteErrorJSON(w, http.StatusNotFound, "admin not found")
			return
		}
		h.serverError(w, "set admin enabled", err)
		return
	}
	if !h.logMutation(w, r, "admin.enabled.set", strconv.FormatInt(id, 10), map[string]any{"enabled": *req.Enabled}) {
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type catalogGroup struct {
	Group     string   `json:"group"`
	Title     string   `json:"title"`
	Resources []string `json:"resources"`
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	grouped := permission.Grouped()
	groups := make([]catalogGroup, 0, len(grouped))
	for _, g := range grouped {
		resources := make([]string, 0, len(g.Resources))
		for _, res := range g.Resources {
			resources = append(resources, string(res))
		}
		groups = append(groups, catalogGroup{Group: g.Group, Title: g.Title, Resources: resources})
	}
	levels := make([]string, 0, len(permission.Levels()))
	for _, lvl := range permission.Levels() {
		levels = append(levels, string(lvl))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"groups": groups, "levels": levels})
}

// logMutation appends the audit entry for a successful privileged mutation.
// A failed write fails the request: the mutation response must not pretend
// the trail was written.
func (h *Handler) logMutation(w http.ResponseWriter, r *http.Request, action, resourceID string, details map[string]any) bool {
	event := audit.Event{
		Action:     action,
		Resource:   string(permission.ResourceAdmins),
		ResourceID: resourceID,
		Details:    details,
	}
	if principal := PrincipalFromContext(r.Context()); principal != nil {
		event.ActorID = &principal.ID
	}
	if err := h.audit.LogAction(r.Context(), r, event, audit.OutcomeSuccess, ""); err != nil {
		h.logger.Error("audit mutation", slog.Any("error", err), slog.String("action", action))
		shared.WriteErrorJSON(w, http.StatusInternalServerError, "audit write failed")
		return false
	}
	return true
}

func (h *Handler) serverError(w http.ResponseWriter, action string, err error) {
	h.logger.Error(action, slog.Any("error", err))
	shared.WriteErrorJSON(w, http.StatusInternalServerError, "internal error")
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		shared.WriteErrorJSON(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
