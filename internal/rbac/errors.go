package rbac

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates the requested role or admin does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrRoleInUse rejects deletion of a role still held by an enabled admin.
	ErrRoleInUse = errors.New("rbac: role in use")
	// ErrNameTaken rejects a duplicate role name.
	ErrNameTaken = errors.New("rbac: role name taken")

	// ErrAuthenticationRequired means the request carries no identity.
	ErrAuthenticationRequired = errors.New("rbac: authentication required")
	// ErrNotAnAdmin means the identity maps to no enabled admin principal.
	ErrNotAnAdmin = errors.New("rbac: not an admin")
	// ErrInsufficientPermission means the effective level does not satisfy
	// the operation's minimum.
	ErrInsufficientPermission = errors.New("rbac: insufficient permission")
)

// ErrorStatus translates an authorization error into its HTTP status. Callers
// never guess: 401 for a missing identity, 403 for a failed principal or
// level check, 500 for anything else.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotAnAdmin), errors.Is(err, ErrInsufficientPermission):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage returns the response body message for an authorization error.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return "authentication required"
	case errors.Is(err, ErrNotAnAdmin):
		return "not an admin"
	case errors.Is(err, ErrInsufficientPermission):
		return "insufficient permission"
	default:
		return "internal error"
	}
}
