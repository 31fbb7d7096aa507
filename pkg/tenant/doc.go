// Package tenant identifies which church site a request belongs to.
//
// A deployment runs in one of two modes:
//
//   - single-tenant: an upstream API token is configured and every request
//     is served for that token, whatever host it arrived on.
//   - multi-tenant: no token is configured and the identity is the
//     lower-cased host name of the incoming request.
//
// Context is a tagged union over these two identities. Its CachePrefix is the
// only namespace boundary between tenants in a shared cache store, so it is
// pure, deterministic and injective over its inputs.
//
// # Usage
//
//	resolver := tenant.NewResolver(cfg.APIToken)
//	t, err := resolver.FromRequest(r)
//	if errors.Is(err, tenant.ErrUnresolvedTenant) {
//		http.Error(w, "forbidden", http.StatusForbidden)
//		return
//	}
//	doc, err := proxy.Homepage(r.Context(), t)
package tenant
