package rbac

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lumenshop/lumenshop-admin/internal/permission"
)

// MemoryRepository is an in-process Repository used by tests and local
// development seeding. It honors the same invariants as the Postgres
// implementation, including the atomic ErrRoleInUse rejection.
type MemoryRepository struct {
	mu         sync.RWMutex
	roles      map[int64]*Role
	admins     map[int64]*Admin
	byIdentity map[string]int64
	nextRoleID int64
	nextAdmin  int64
	now        func() time.Time
}

// NewMemoryRepository constructs an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		roles:      make(map[int64]*Role),
		admins:     make(map[int64]*Admin),
		byIdentity: make(map[string]int64),
		now:        time.Now,
	}
}

var _ Repository = (*MemoryRepository)(nil)

// CreateRole inserts a new role.
func (m *MemoryRepository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, role := range m.roles {
		if role.Name == name {
			return Role{}, ErrNameTaken
		}
	}
	m.nextRoleID++
	now := m.now()
	role := &Role{
		ID:          m.nextRoleID,
		Name:        name,
		Description: description,
		Grants:      make(map[permission.Resource]permission.Level),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.roles[role.ID] = role
	return cloneRole(role), nil
}

// UpdateRole updates name and description.
func (m *MemoryRepository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	for _, other := range m.roles {
		if other.ID != id && other.Name == name {
			return Role{}, ErrNameTaken
		}
	}
	role.Name = name
	role.Description = description
	role.UpdatedAt = m.now()
	return cloneRole(role), nil
}

// DeleteRole removes a role unless an enabled admin references it.
func (m *MemoryRepository) DeleteRole(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return ErrNotFound
	}
	for _, admin := range m.admins {
		if admin.RoleID == id && admin.IsEnabled {
			return ErrRoleInUse
		}
	}
	delete(m.roles, id)
	return nil
}

// GetRole fetches a role with grants.
func (m *MemoryRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	role, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return cloneRole(role), nil
}

// ListRoles returns roles ordered by name.
func (m *MemoryRepository) ListRoles(ctx context.Context) ([]Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roles := make([]Role, 0, len(m.roles))
	for _, role := range m.roles {
		roles = append(roles, cloneRole(role))
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

// UpsertRoleGrant sets one resource grant.
func (m *MemoryRepository) UpsertRoleGrant(ctx context.Context, roleID int64, resource permission.Resource, level permission.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[roleID]
	if !ok {
		return ErrNotFound
	}
	role.Grants[resource] = level
	role.UpdatedAt = m.now()
	return nil
}

// SeedAdmin inserts an admin principal directly, for tests and dev seeding.
func (m *MemoryRepository) SeedAdmin(a Admin) Admin {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		m.nextAdmin++
		a.ID = m.nextAdmin
	} else if a.ID > m.nextAdmin {
		m.nextAdmin = a.ID
	}
	if a.Overrides == nil {
		a.Overrides = make(map[permission.Resource]permission.Level)
	}
	stored := a
	m.admins[a.ID] = &stored
	m.byIdentity[a.IdentityID] = a.ID
	return a
}

// GetAdmin fetches an admin by ID.
func (m *MemoryRepository) GetAdmin(ctx context.Context, id int64) (Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	admin, ok := m.admins[id]
	if !ok {
		return Admin{}, ErrNotFound
	}
	return cloneAdmin(admin), nil
}

// GetAdminByIdentity fetches an admin by external identity subject.
func (m *MemoryRepository) GetAdminByIdentity(ctx context.Context, identityID string) (Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byIdentity[identityID]
	if !ok {
		return Admin{}, ErrNotFound
	}
	return cloneAdmin(m.admins[id]), nil
}

// ListAdmins returns admins ordered by email.
func (m *MemoryRepository) ListAdmins(ctx context.Context) ([]Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	admins := make([]Admin, 0, len(m.admins))
	for _, a := range m.admins {
		admins = append(admins, cloneAdmin(a))
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].Email < admins[j].Email })
	return admins, nil
}

// SetAdminOverride upserts or clears one override.
func (m *MemoryRepository) SetAdminOverride(ctx context.Context, adminID int64, resource permission.Resource, level *permission.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, ok := m.admins[adminID]
	if !ok {
		return ErrNotFound
	}
	if level == nil {
		delete(admin.Overrides, resource)
		return nil
	}
	admin.Overrides[resource] = *level
	admin.UpdatedAt = m.now()
	return nil
}

// SetAdminEnabled toggles an admin principal.
func (m *MemoryRepository) SetAdminEnabled(ctx context.Context, adminID int64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, ok := m.admins[adminID]
	if !ok {
		return ErrNotFound
	}
	admin.IsEnabled = enabled
	admin.UpdatedAt = m.now()
	return nil
}

func cloneRole(role *Role) Role {
	out := *role
	out.Grants = make(map[permission.Resource]permission.Level, len(role.Grants))
	for k, v := range role.Grants {
		out.Grants[k] = v
	}
	return out
}

func cloneAdmin(admin *Admin) Admin {
	out := *admin
	out.Overrides = make(map[permission.Resource]permission.Level, len(admin.Overrides))
	for k, v := range admin.Overrides {
		out.Overrides[k] = v
	}
	return out
}
