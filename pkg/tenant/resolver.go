package tenant

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
)

// Header names shared with the upstream API and the invalidation endpoint.
const (
	// HeaderDomain carries the tenant host name in multi-tenant mode.
	HeaderDomain = "X-Church-Domain"

	// HeaderCacheSecret carries the shared secret for single-tenant invalidation.
	HeaderCacheSecret = "X-Cache-Secret"
)

// Resolver derives tenant identities from deployment configuration and request metadata.
type Resolver struct {
	token string
}

// NewResolver creates a resolver. An empty token selects multi-tenant mode.
func NewResolver(token string) *Resolver {
	return &Resolver{token: strings.TrimSpace(token)}
}

// MultiTenant reports whether identities are derived per request.
func (r *Resolver) MultiTenant() bool {
	return r.token == ""
}

// FromRequest resolves the tenant for a content request.
// In single-tenant mode the request origin is ignored.
func (r *Resolver) FromRequest(req *http.Request) (Context, error) {
	if !r.MultiTenant() {
		return NewToken(r.token)
	}
	if req == nil {
		return Context{}, ErrUnresolvedTenant
	}
	return NewDomain(hostOnly(req.Host))
}

// ForInvalidation resolves the tenant for a cache invalidation request.
//
// In single-tenant mode secret must equal the configured token (ErrInvalidSecret
// otherwise). In multi-tenant mode domain must be non-empty (ErrUnresolvedTenant
// otherwise).
func (r *Resolver) ForInvalidation(secret, domain string) (Context, error) {
	if !r.MultiTenant() {
		if subtle.ConstantTimeCompare([]byte(secret), []byte(r.token)) != 1 {
			return Context{}, ErrInvalidSecret
		}
		return NewToken(r.token)
	}
	return NewDomain(domain)
}

// InvalidationFromRequest reads the invalidation headers from req and calls ForInvalidation.
func (r *Resolver) InvalidationFromRequest(req *http.Request) (Context, error) {
	return r.ForInvalidation(req.Header.Get(HeaderCacheSecret), req.Header.Get(HeaderDomain))
}

// hostOnly strips an optional port from a Host header value.
func hostOnly(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return strings.Trim(hostport, "[]")
}
