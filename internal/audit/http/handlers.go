package audithttp

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/lumenshop/lumenshop-admin/internal/audit"
	"github.com/lumenshop/lumenshop-admin/internal/permission"
	"github.com/lumenshop/lumenshop-admin/internal/rbac"
	"github.com/lumenshop/lumenshop-admin/internal/shared"
)

// Handler exposes the audit trail query and retention surface.
type Handler struct {
	logger  *slog.Logger
	service *audit.Service
	guard   *rbac.Guard
}

// NewHandler constructs an audit handler.
func NewHandler(logger *slog.Logger, service *audit.Service, guard *rbac.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

type listResponse struct {
	Logs  []audit.Entry `json:"logs"`
	Count int64         `json:"count"`
}

// handleList serves filtered audit queries, newest-first. It must never
// append an entry itself: reviewing the trail cannot pollute it.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		shared.WriteErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, count, err := h.service.Query(r.Context(), filters)
	if err != nil {
		h.logger.Error("query audit logs", slog.Any("error", err))
		shared.WriteErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	shared.WriteJSON(w, http.StatusOK, listResponse{Logs: entries, Count: count})
}

type pruneResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

// handlePrune bulk-deletes entries older than the requested number of days.
// The prune is itself a privileged mutation and is recorded on the trail;
// that write is fail-closed.
func (h *Handler) handlePrune(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			shared.WriteErrorJSON(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = parsed
	}

	deleted, err := h.service.ClearOlderThan(r.Context(), days)
	if err != nil {
		h.logger.Error("prune audit logs", slog.Any("error", err))
		shared.WriteErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}

	principal := rbac.PrincipalFromContext(r.Context())
	event := audit.Event{
		Action:   "audit.prune",
		Resource: string(permission.ResourceAuditLog),
		Details:  map[string]any{"days": days, "deleted_count": deleted},
	}
	if principal != nil {
		event.ActorID = &principal.ID
	}
	if err := h.service.LogAction(r.Context(), r, event, audit.OutcomeSuccess, ""); err != nil {
		h.logger.Error("log audit prune", slog.Any("error", err))
		shared.WriteErrorJSON(w, http.StatusInternalServerError, "audit write failed")
		return
	}

	shared.WriteJSON(w, http.StatusOK, pruneResponse{DeletedCount: deleted})
}

func parseFilters(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	var filters audit.Filters

	if raw := strings.TrimSpace(q.Get("actor_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return audit.Filters{}, errInvalidParam("actor_id")
		}
		filters.ActorID = &id
	}
	filters.Action = strings.TrimSpace(q.Get("action"))
	filters.Resource = strings.TrimSpace(q.Get("resource"))
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		outcome := audit.Outcome(raw)
		if !outcome.Valid() {
			return audit.Filters{}, errInvalidParam("status")
		}
		filters.Outcome = outcome
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return audit.Filters{}, errInvalidParam("limit")
		}
		filters.Limit = limit
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return audit.Filters{}, errInvalidParam("offset")
		}
		filters.Offset = offset
	}
	return filters, nil
}

type paramError string

func errInvalidParam(name string) error { return paramError(name) }

func (p paramError) Error() string { return "invalid " + string(p) }
