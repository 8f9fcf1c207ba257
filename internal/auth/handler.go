package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumenshop/lumenshop-admin/internal/identity"
	"github.com/lumenshop/lumenshop-admin/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.handleCSRFToken)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

// handleCSRFToken hands a token to API clients before their first mutating
// request; the session middleware has already created the backing session.
func (h *Handler) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		shared.WriteErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
		shared.WriteErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteErrorJSON(w, http.StatusBadRequest, "email and password required")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password, r.RemoteAddr)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrAccountLocked):
			shared.WriteErrorJSON(w, http.StatusLocked, "account temporarily locked")
		case errors.Is(err, shared.ErrInvalidCredentials):
			shared.WriteErrorJSON(w, http.StatusUnauthorized, "invalid credentials")
		default:
			h.logger.Error("authenticate", slog.Any("error", err))
			shared.WriteErrorJSON(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		shared.WriteErrorJSON(w, http.StatusInternalServerError, "internal error")
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	sess.Set(identity.SessionEmailKey, user.Email)

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	shared.WriteJSON(w, http.StatusOK, loginResponse{UserID: user.ID, Email: user.Email})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
