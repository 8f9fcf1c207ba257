package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenshop/lumenshop-admin/internal/permission"
	"github.com/lumenshop/lumenshop-admin/internal/platform/db"
)

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// CreateRole inserts a new role.
func (r *PGRepository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `INSERT INTO roles (name, description, created_at, updated_at)
VALUES ($1, $2, NOW(), NOW()) RETURNING id, name, description, created_at, updated_at`,
		name, description).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Role{}, ErrNameTaken
		}
		return Role{}, err
	}
	role.Grants = map[permission.Resource]permission.Level{}
	return role, nil
}

// UpdateRole updates name and description of an existing role.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `UPDATE roles SET name = $2, description = $3, updated_at = NOW()
WHERE id = $1 RETURNING id, name, description, created_at, updated_at`,
		id, name, description).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return Role{}, ErrNameTaken
		}
		return Role{}, err
	}
	grants, err := r.roleGrants(ctx, r.pool, id)
	if err != nil {
		return Role{}, err
	}
	role.Grants = grants
	return role, nil
}

// DeleteRole removes a role unless an enabled admin still references it. The
// reference check and the delete run in one transaction so the rejection is
// atomic.
func (r *PGRepository) DeleteRole(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var inUse int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM admins WHERE role_id = $1 AND is_enabled`, id).Scan(&inUse); err != nil {
			return err
		}
		if inUse > 0 {
			return ErrRoleInUse
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_grants WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetRole fetches a role with its grants.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	grants, err := r.roleGrants(ctx, r.pool, id)
	if err != nil {
		return Role{}, err
	}
	role.Grants = grants
	return role, nil
}

// ListRoles returns all roles with grants, ordered by name.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range roles {
		grants, err := r.roleGrants(ctx, r.pool, roles[i].ID)
		if err != nil {
			return nil, err
		}
		roles[i].Grants = grants
	}
	return roles, nil
}

// UpsertRoleGrant sets one resource grant on a role.
func (r *PGRepository) UpsertRoleGrant(ctx context.Context, roleID int64, resource permission.Resource, level permission.Level) error {
	tag, err := r.pool.Exec(ctx, `INSERT INTO role_grants (role_id, resource, level, updated_at)
SELECT id, $2, $3, NOW() FROM roles WHERE id = $1
ON CONFLICT (role_id, resource) DO UPDATE SET level = EXCLUDED.level, updated_at = NOW()`,
		roleID, string(resource), string(level))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAdmin fetches an admin with overrides.
func (r *PGRepository) GetAdmin(ctx context.Context, id int64) (Admin, error) {
	return r.getAdmin(ctx, `SELECT id, identity_id, email, role_id, is_enabled, requires_2fa, created_at, updated_at
FROM admins WHERE id = $1`, id)
}

// GetAdminByIdentity fetches an admin by external identity subject.
func (r *PGRepository) GetAdminByIdentity(ctx context.Context, identityID string) (Admin, error) {
	return r.getAdmin(ctx, `SELECT id, identity_id, email, role_id, is_enabled, requires_2fa, created_at, updated_at
FROM admins WHERE identity_id = $1`, identityID)
}

func (r *PGRepository) getAdmin(ctx context.Context, query string, arg any) (Admin, error) {
	var a Admin
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&a.ID, &a.IdentityID, &a.Email, &a.RoleID, &a.IsEnabled, &a.Requires2FA, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Admin{}, ErrNotFound
		}
		return Admin{}, err
	}
	overrides, err := r.adminOverrides(ctx, a.ID)
	if err != nil {
		return Admin{}, err
	}
	a.Overrides = overrides
	return a, nil
}

// ListAdmins returns all admins with overrides, ordered by email.
func (r *PGRepository) ListAdmins(ctx context.Context) ([]Admin, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, identity_id, email, role_id, is_enabled, requires_2fa, created_at, updated_at
FROM admins ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var admins []Admin
	for rows.Next() {
		var a Admin
		if err := rows.Scan(&a.ID, &a.IdentityID, &a.Email, &a.RoleID, &a.IsEnabled, &a.Requires2FA, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range admins {
		overrides, err := r.adminOverrides(ctx, admins[i].ID)
		if err != nil {
			return nil, err
		}
		admins[i].Overrides = overrides
	}
	return admins, nil
}

// SetAdminOverride upserts or clears one override.
func (r *PGRepository) SetAdminOverride(ctx context.Context, adminID int64, resource permission.Resource, level *permission.Level) error {
	if level == nil {
		_, err := r.pool.Exec(ctx, `DELETE FROM admin_overrides WHERE admin_id = $1 AND resource = $2`,
			adminID, string(resource))
		return err
	}
	tag, err := r.pool.Exec(ctx, `INSERT INTO admin_overrides (admin_id, resource, level, updated_at)
SELECT id, $2, $3, NOW() FROM admins WHERE id = $1
ON CONFLICT (admin_id, resource) DO UPDATE SET level = EXCLUDED.level, updated_at = NOW()`,
		adminID, string(resource), string(*level))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAdminEnabled toggles an admin principal.
func (r *PGRepository) SetAdminEnabled(ctx context.Context, adminID int64, enabled bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE admins SET is_enabled = $2, updated_at = NOW() WHERE id = $1`, adminID, enabled)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PGRepository) roleGrants(ctx context.Context, q queryer, roleID int64) (map[permission.Resource]permission.Level, error) {
	rows, err := q.Query(ctx, `SELECT resource, level FROM role_grants WHERE role_id = $1`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	grants := make(map[permission.Resource]permission.Level)
	for rows.Next() {
		var resource, level string
		if err := rows.Scan(&resource, &level); err != nil {
			return nil, err
		}
		grants[permission.Resource(resource)] = permission.Level(level)
	}
	return grants, rows.Err()
}

func (r *PGRepository) adminOverrides(ctx context.Context, adminID int64) (map[permission.Resource]permission.Level, error) {
	rows, err := r.pool.Query(ctx, `SELECT resource, level FROM admin_overrides WHERE admin_id = $1`, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	overrides := make(map[permission.Resource]permission.Level)
	for rows.Next() {
		var resource, level string
		if err := rows.Scan(&resource, &level); err != nil {
			return nil, err
		}
		overrides[permission.Resource(resource)] = permission.Level(level)
	}
	return overrides, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
