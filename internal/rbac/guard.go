package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lumenshop/lumenshop-admin/internal/identity"
	"github.com/lumenshop/lumenshop-admin/internal/permission"
	"github.com/lumenshop/lumenshop-admin/internal/shared"
)

// DenialRecorder appends audit entries for denied requests. Implementations
// must be best-effort: a failed write never blocks the 401/403 response.
type DenialRecorder interface {
	RecordDenial(ctx context.Context, r *http.Request, actorID *int64, resource permission.Resource, reason string)
}

// DecisionObserver records authorization outcomes for metrics.
type DecisionObserver interface {
	ObserveDecision(resource permission.Resource, allowed bool)
}

// Guard enforces a minimum permission level in front of privileged
// operations. Both entry points route through the same check so the
// middleware and the value form can never disagree.
type Guard struct {
	service    *Service
	identities identity.Provider
	denials    DenialRecorder
	observer   DecisionObserver
	logger     *slog.Logger
}

// NewGuard constructs a Guard. denials and observer may be nil.
func NewGuard(service *Service, identities identity.Provider, denials DenialRecorder, observer DecisionObserver, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		service:    service,
		identities: identities,
		denials:    denials,
		observer:   observer,
		logger:     logger,
	}
}

// Decision is the value form of an authorization check.
type Decision struct {
	Authorized bool
	Principal  *Admin
	Err        error
}

// RequirePermission wraps an operation, allowing it only when the caller's
// effective level on resource satisfies min. On deny it writes the JSON error
// response itself; on allow it invokes next with the principal in context.
// It never auto-logs success: the wrapped operation decides what audit detail
// a successful mutation warrants.
func (g *Guard) RequirePermission(resource permission.Resource, min permission.Level) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, err := g.check(r, resource, min)
			if err != nil {
				shared.WriteErrorJSON(w, ErrorStatus(err), ErrorMessage(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), admin)))
		})
	}
}

// VerifyPermission runs the identical check and returns the outcome as a
// value, for handlers that need manual branching. Callers translate Err via
// ErrorStatus.
func (g *Guard) VerifyPermission(r *http.Request, resource permission.Resource, min permission.Level) Decision {
	admin, err := g.check(r, resource, min)
	if err != nil {
		return Decision{Principal: admin, Err: err}
	}
	return Decision{Authorized: true, Principal: admin}
}

// check resolves identity, principal and effective level, records denials and
// metrics, and returns the principal on success. This is the single
// resolution path behind both entry points.
func (g *Guard) check(r *http.Request, resource permission.Resource, min permission.Level) (*Admin, error) {
	ctx := r.Context()

	ident, err := g.identities.Current(r)
	if err != nil {
		g.logger.Error("resolve identity", slog.Any("error", err))
		return nil, err
	}
	if ident == nil {
		g.deny(ctx, r, nil, resource, "authentication required")
		return nil, ErrAuthenticationRequired
	}

	admin, err := g.service.GetAdminByIdentity(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			g.deny(ctx, r, nil, resource, "no admin principal for identity "+ident.ID)
			return nil, ErrNotAnAdmin
		}
		g.logger.Error("load admin principal", slog.Any("error", err))
		return nil, err
	}
	if !admin.IsEnabled {
		g.deny(ctx, r, &admin.ID, resource, "admin disabled")
		return &admin, ErrNotAnAdmin
	}

	effective, err := g.service.resolve(ctx, admin)
	if err != nil {
		g.logger.Error("resolve effective permissions", slog.Any("error", err), slog.Int64("admin_id", admin.ID))
		return &admin, err
	}
	if !permission.Satisfies(min, effective.Level(resource)) {
		g.deny(ctx, r, &admin.ID, resource, "insufficient permission")
		return &admin, ErrInsufficientPermission
	}

	if g.observer != nil {
		g.observer.ObserveDecision(resource, true)
	}
	return &admin, nil
}

func (g *Guard) deny(ctx context.Context, r *http.Request, actorID *int64, resource permission.Resource, reason string) {
	if g.observer != nil {
		g.observer.ObserveDecision(resource, false)
	}
	if g.denials == nil {
		return
	}
	// Denial bookkeeping survives a client disconnect but must never fail
	// the response; RecordDenial swallows its own errors.
	g.denials.RecordDenial(context.WithoutCancel(ctx), r, actorID, resource, reason)
}

type principalContextKey struct{}

// ContextWithPrincipal stores the authorized principal in context.
func ContextWithPrincipal(ctx context.Context, admin *Admin) context.Context {
	return context.WithValue(ctx, principalContextKey{}, admin)
}

// PrincipalFromContext extracts the principal placed by the guard.
func PrincipalFromContext(ctx context.Context) *Admin {
	admin, _ := ctx.Value(principalContextKey{}).(*Admin)
	return admin
}
