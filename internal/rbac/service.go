package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lumenshop/lumenshop-admin/internal/permission"
)

// Service orchestrates role, override and resolution operations. Every guard
// call site goes through this one service; there is deliberately no second
// authorization path.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
}

// UpdateRole updates an existing role.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
}

// DeleteRole removes a role by ID. Returns ErrRoleInUse while any enabled
// admin still holds the role.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// SetRoleGrant sets the level for one catalogued resource on a role. Unknown
// resources and levels are rejected here, at registration time, never at
// check time.
func (s *Service) SetRoleGrant(ctx context.Context, roleID int64, resource permission.Resource, level permission.Level) error {
	if !permission.Known(resource) {
		return fmt.Errorf("rbac: unknown resource %q", resource)
	}
	if !level.Valid() {
		return fmt.Errorf("rbac: unknown level %q", level)
	}
	return s.repo.UpsertRoleGrant(ctx, roleID, resource, level)
}

// RolePermissions returns the role's grant for every catalogued resource;
// resources without an explicit grant read back as NoAccess.
func (s *Service) RolePermissions(ctx context.Context, roleID int64) (map[permission.Resource]permission.Level, error) {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	out := make(map[permission.Resource]permission.Level, len(permission.All()))
	for _, resource := range permission.All() {
		if lvl, ok := role.Grants[resource]; ok {
			out[resource] = lvl
		} else {
			out[resource] = permission.NoAccess
		}
	}
	return out, nil
}

// SetAdminOverride upserts a per-admin exception for one resource; a nil
// level clears it. Overrides win over the role grant unconditionally, whether
// they widen or narrow it.
func (s *Service) SetAdminOverride(ctx context.Context, adminID int64, resource permission.Resource, level *permission.Level) error {
	if !permission.Known(resource) {
		return fmt.Errorf("rbac: unknown resource %q", resource)
	}
	if level != nil && !level.Valid() {
		return fmt.Errorf("rbac: unknown level %q", *level)
	}
	return s.repo.SetAdminOverride(ctx, adminID, resource, level)
}

// GetAdmin fetches an admin principal by ID.
func (s *Service) GetAdmin(ctx context.Context, id int64) (Admin, error) {
	return s.repo.GetAdmin(ctx, id)
}

// GetAdminByIdentity fetches an admin principal by external identity subject.
func (s *Service) GetAdminByIdentity(ctx context.Context, identityID string) (Admin, error) {
	return s.repo.GetAdminByIdentity(ctx, identityID)
}

// ListAdmins returns all admin principals.
func (s *Service) ListAdmins(ctx context.Context) ([]Admin, error) {
	return s.repo.ListAdmins(ctx)
}

// SetAdminEnabled toggles an admin principal.
func (s *Service) SetAdminEnabled(ctx context.Context, adminID int64, enabled bool) error {
	return s.repo.SetAdminEnabled(ctx, adminID, enabled)
}

// Resolve computes the full effective permission map for an admin: the role's
// grants overlaid with the admin's overrides. It re-reads persisted state on
// every call so role and override edits are visible on the next request with
// no staleness window.
func (s *Service) Resolve(ctx context.Context, adminID int64) (EffectiveMap, error) {
	admin, err := s.repo.GetAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, admin)
}

func (s *Service) resolve(ctx context.Context, admin Admin) (EffectiveMap, error) {
	role, err := s.repo.GetRole(ctx, admin.RoleID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			role = Role{}
		} else {
			return nil, err
		}
	}
	effective := make(EffectiveMap, len(role.Grants)+len(admin.Overrides))
	for resource, level := range role.Grants {
		if permission.Known(resource) && level.Valid() {
			effective[resource] = level
		}
	}
	for resource, level := range admin.Overrides {
		if permission.Known(resource) && level.Valid() {
			effective[resource] = level
		}
	}
	return effective, nil
}
