package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lumenshop/lumenshop-admin/internal/audit"
	"github.com/lumenshop/lumenshop-admin/internal/identity"
	"github.com/lumenshop/lumenshop-admin/internal/permission"
)

// staticProvider returns a fixed identity, or nil for anonymous requests.
type staticProvider struct {
	ident *identity.Identity
	err   error
}

func (p *staticProvider) Current(r *http.Request) (*identity.Identity, error) {
	return p.ident, p.err
}

type countingObserver struct {
	allowed int
	denied  int
}

func (o *countingObserver) ObserveDecision(resource permission.Resource, allowed bool) {
	if allowed {
		o.allowed++
	} else {
		o.denied++
	}
}

type guardFixture struct {
	repo     *MemoryRepository
	service  *Service
	guard    *Guard
	auditLog *audit.MemoryRepository
	observer *countingObserver
	provider *staticProvider
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	repo := NewMemoryRepository()
	service := NewService(repo)
	auditRepo := audit.NewMemoryRepository()
	observer := &countingObserver{}
	provider := &staticProvider{}
	guard := NewGuard(service, provider, audit.NewService(auditRepo, nil), observer, nil)
	return &guardFixture{
		repo:     repo,
		service:  service,
		guard:    guard,
		auditLog: auditRepo,
		observer: observer,
		provider: provider,
	}
}

func (f *guardFixture) seedAdmin(t *testing.T, grants map[permission.Resource]permission.Level) Admin {
	t.Helper()
	role := seedRole(t, f.repo, "fixture-role", grants)
	admin := f.repo.SeedAdmin(Admin{IdentityID: "idp-guard", Email: "guard@lumenshop.dev", RoleID: role.ID, IsEnabled: true})
	f.provider.ident = &identity.Identity{ID: admin.IdentityID, Email: admin.Email}
	return admin
}

func (f *guardFixture) do(resource permission.Resource, min permission.Level) *httptest.ResponseRecorder {
	handler := f.guard.RequirePermission(resource, min)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.RemoteAddr = "203.0.113.9:4431"
	handler.ServeHTTP(rec, req)
	return rec
}

func TestGuardAllowsSufficientLevel(t *testing.T) {
	f := newGuardFixture(t)
	f.seedAdmin(t, map[permission.Resource]permission.Level{
		permission.ResourceOrders: permission.FullControl,
	})

	if rec := f.do(permission.ResourceOrders, permission.ReadOnly); rec.Code != http.StatusNoContent {
		t.Fatalf("read under full grant: status %d, want 204", rec.Code)
	}
	if rec := f.do(permission.ResourceOrders, permission.FullControl); rec.Code != http.StatusNoContent {
		t.Fatalf("full under full grant: status %d, want 204", rec.Code)
	}
	if f.auditLog.Len() != 0 {
		t.Fatalf("allowed requests wrote %d audit entries, want 0", f.auditLog.Len())
	}
	if f.observer.allowed != 2 || f.observer.denied != 0 {
		t.Fatalf("observer saw %d/%d, want 2 allowed, 0 denied", f.observer.allowed, f.observer.denied)
	}
}

func TestGuardDeniesInsufficientLevel(t *testing.T) {
	f := newGuardFixture(t)
	admin := f.seedAdmin(t, map[permission.Resource]permission.Level{
		permission.ResourceOrders: permission.ReadOnly,
	})

	rec := f.do(permission.ResourceOrders, permission.FullControl)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("full under read grant: status %d, want 403", rec.Code)
	}

	entries, total, err := f.auditLog.List(context.Background(), audit.Filters{Action: audit.ActionDenied})
	if err != nil {
		t.Fatalf("list denials: %v", err)
	}
	if total != 1 {
		t.Fatalf("denial entries = %d, want 1", total)
	}
	e := entries[0]
	if e.Outcome != audit.OutcomeFailure {
		t.Fatalf("denial outcome = %q, want failure", e.Outcome)
	}
	if e.ActorID == nil || *e.ActorID != admin.ID {
		t.Fatalf("denial actor = %v, want %d", e.ActorID, admin.ID)
	}
	if e.Resource != string(permission.ResourceOrders) {
		t.Fatalf("denial resource = %q", e.Resource)
	}
	if e.IP != "203.0.113.9" {
		t.Fatalf("denial ip = %q", e.IP)
	}
}

func TestGuardRestrictedGrant(t *testing.T) {
	f := newGuardFixture(t)
	f.seedAdmin(t, map[permission.Resource]permission.Level{
		permission.ResourcePricing: permission.Restricted,
	})

	if rec := f.do(permission.ResourcePricing, permission.ReadOnly); rec.Code != http.StatusNoContent {
		t.Fatalf("read under restricted grant: status %d, want 204", rec.Code)
	}
	if rec := f.do(permission.ResourcePricing, permission.Restricted); rec.Code != http.StatusNoContent {
		t.Fatalf("restricted under restricted grant: status %d, want 204", rec.Code)
	}
	if rec := f.do(permission.ResourcePricing, permission.FullControl); rec.Code != http.StatusForbidden {
		t.Fatalf("full under restricted grant: status %d, want 403", rec.Code)
	}
}

func TestGuardAnonymous(t *testing.T) {
	f := newGuardFixture(t)
	f.provider.ident = nil

	rec := f.do(permission.ResourceOrders, permission.ReadOnly)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous request: status %d, want 401", rec.Code)
	}
	entries, total, err := f.auditLog.List(context.Background(), audit.Filters{Action: audit.ActionDenied})
	if err != nil {
		t.Fatalf("list denials: %v", err)
	}
	if total != 1 || entries[0].ActorID != nil {
		t.Fatalf("anonymous denial entry wrong: total=%d actor=%v", total, entries[0].ActorID)
	}
}

func TestGuardNonAdminIdentity(t *testing.T) {
	f := newGuardFixture(t)
	f.provider.ident = &identity.Identity{ID: "idp-stranger", Email: "stranger@lumenshop.dev"}

	rec := f.do(permission.ResourceOrders, permission.ReadOnly)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin identity: status %d, want 403", rec.Code)
	}
}

func TestGuardDisabledAdmin(t *testing.T) {
	f := newGuardFixture(t)
	admin := f.seedAdmin(t, map[permission.Resource]permission.Level{
		permission.ResourceOrders: permission.FullControl,
	})
	if err := f.service.SetAdminEnabled(context.Background(), admin.ID, false); err != nil {
		t.Fatalf("disable: %v", err)
	}

	rec := f.do(permission.ResourceOrders, permission.ReadOnly)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("disabled admin: status %d, want 403", rec.Code)
	}
}

func TestGuardOverrideChangesDecision(t *testing.T) {
	f := newGuardFixture(t)
	admin := f.seedAdmin(t, map[permission.Resource]permission.Level{
		permission.ResourceCustomers: permission.FullControl,
	})

	narrow := permission.ReadOnly
	if err := f.service.SetAdminOverride(context.Background(), admin.ID, permission.ResourceCustomers, &narrow); err != nil {
		t.Fatalf("override: %v", err)
	}
	if rec := f.do(permission.ResourceCustomers, permission.FullControl); rec.Code != http.StatusForbidden {
		t.Fatalf("narrowed by override: status %d, want 403", rec.Code)
	}

	if err := f.service.SetAdminOverride(context.Background(), admin.ID, permission.ResourceCustomers, nil); err != nil {
		t.Fatalf("clear override: %v", err)
	}
	if rec := f.do(permission.ResourceCustomers, permission.FullControl); rec.Code != http.StatusNoContent {
		t.Fatalf("after clearing override: status %d, want 204", rec.Code)
	}
}

// TestGuardEntryPointsAgree drives every resource and level pair through both
// entry points and requires identical outcomes.
func TestGuardEntryPointsAgree(t *testing.T) {
	f := newGuardFixture(t)
	f.seedAdmin(t, map[permission.Resource]permission.Level{
		permission.ResourceOrders:    permission.FullControl,
		permission.ResourceCustomers: permission.ReadOnly,
		permission.ResourcePricing:   permission.Restricted,
		permission.ResourceSettings:  permission.NoAccess,
	})

	for _, resource := range permission.All() {
		for _, min := range permission.Levels() {
			rec := f.do(resource, min)
			middlewareAllowed := rec.Code == http.StatusNoContent

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.RemoteAddr = "203.0.113.9:4431"
			decision := f.guard.VerifyPermission(req, resource, min)

			if middlewareAllowed != decision.Authorized {
				t.Fatalf("entry points disagree on %s/%s: middleware=%v value=%v",
					resource, min, middlewareAllowed, decision.Authorized)
			}
			if !decision.Authorized && !errors.Is(decision.Err, ErrInsufficientPermission) {
				t.Fatalf("deny on %s/%s returned %v", resource, min, decision.Err)
			}
		}
	}
}

func TestGuardPrincipalInContext(t *testing.T) {
	f := newGuardFixture(t)
	admin := f.seedAdmin(t, map[permission.Resource]permission.Level{
		permission.ResourceOrders: permission.ReadOnly,
	})

	var seen *Admin
	handler := f.guard.RequirePermission(permission.ResourceOrders, permission.ReadOnly)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = PrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d, want 204", rec.Code)
	}
	if seen == nil || seen.ID != admin.ID {
		t.Fatalf("principal in context = %+v, want admin %d", seen, admin.ID)
	}
}
