package identity

import (
	"net/http"
	"strings"

	"github.com/lumenshop/lumenshop-admin/internal/shared"
)

// SessionEmailKey is the session value holding the authenticated email.
const SessionEmailKey = "email"

// SessionProvider derives the identity from the Redis-backed session that the
// middleware stack places on the request context.
type SessionProvider struct{}

// Current implements Provider.
func (SessionProvider) Current(r *http.Request) (*Identity, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return nil, nil
	}
	id := strings.TrimSpace(sess.User())
	if id == "" {
		return nil, nil
	}
	return &Identity{ID: id, Email: sess.Get(SessionEmailKey)}, nil
}

var _ Provider = SessionProvider{}
