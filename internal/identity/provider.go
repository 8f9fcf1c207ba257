package identity

import "net/http"

// Identity is the normalized authenticated principal handed to the
// authorization core. Adapters map provider-specific session shapes into this
// value so nothing downstream depends on the upstream session object.
type Identity struct {
	ID    string
	Email string
}

// Provider resolves the identity attached to a request. A nil identity with a
// nil error means the request is unauthenticated.
type Provider interface {
	Current(r *http.Request) (*Identity, error)
}
