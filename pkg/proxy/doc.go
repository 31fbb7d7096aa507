// Package proxy implements the tenant-scoped caching layer in front of the
// content API.
//
// Every cached document lives under a versioned key:
//
//	{prefix}:{logical}:v{version}
//
// where prefix is the tenant cache prefix and version is read from the
// per-tenant counter at {prefix}:version (absent means 1). Invalidate bumps
// that counter and touches nothing else; older entries become unreachable and
// age out through their TTL.
//
// A fetch failure is never stored. Cache store failures degrade to a direct
// upstream fetch.
package proxy
