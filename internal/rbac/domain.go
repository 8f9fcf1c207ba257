package rbac

import (
	"time"

	"github.com/lumenshop/lumenshop-admin/internal/permission"
)

// Role groups resource grants under a name. A resource absent from Grants
// reads as NoAccess.
type Role struct {
	ID          int64
	Name        string
	Description string
	Grants      map[permission.Resource]permission.Level
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Admin is the principal subject to authorization checks. IdentityID is the
// subject issued by the external identity provider. Overrides are sparse
// per-admin exceptions that take precedence over the role grant.
type Admin struct {
	ID          int64
	IdentityID  string
	Email       string
	RoleID      int64
	IsEnabled   bool
	Requires2FA bool
	Overrides   map[permission.Resource]permission.Level
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EffectiveMap is the resolved resource to level view for one admin. It is
// derived on every guard invocation and never persisted or cached.
type EffectiveMap map[permission.Resource]permission.Level

// Level returns the effective level for a resource, NoAccess when unset or
// the resource is not catalogued.
func (m EffectiveMap) Level(r permission.Resource) permission.Level {
	if lvl, ok := m[r]; ok {
		return lvl
	}
	return permission.NoAccess
}
