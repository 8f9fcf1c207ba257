package rbac

import (
	"context"

	"github.com/lumenshop/lumenshop-admin/internal/permission"
)

// Repository defines persistence for roles, grants, admins and overrides. The
// authorization core only touches state through this interface so it can run
// against Postgres in production and the in-memory store in tests.
type Repository interface {
	CreateRole(ctx context.Context, name, description string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	// DeleteRole removes a role. It fails with ErrRoleInUse, leaving all
	// state untouched, while any enabled admin still holds the role.
	DeleteRole(ctx context.Context, id int64) error
	GetRole(ctx context.Context, id int64) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	// UpsertRoleGrant sets the level for one resource on a role, idempotently.
	UpsertRoleGrant(ctx context.Context, roleID int64, resource permission.Resource, level permission.Level) error

	GetAdmin(ctx context.Context, id int64) (Admin, error)
	GetAdminByIdentity(ctx context.Context, identityID string) (Admin, error)
	ListAdmins(ctx context.Context) ([]Admin, error)
	// SetAdminOverride upserts a per-admin exception; a nil level clears it,
	// falling back to the role grant.
	SetAdminOverride(ctx context.Context, adminID int64, resource permission.Resource, level *permission.Level) error
	SetAdminEnabled(ctx context.Context, adminID int64, enabled bool) error
}
