// Package warmup re-populates a tenant's cache after invalidation.
//
// Invalidation orphans every cached document of a tenant, so the next
// visitor of each page pays for an upstream fetch. A Warmer reads a fixed
// list of paths through the caching proxy with a bounded worker pool, which
// stores them under the new version before visitors arrive.
//
// Example usage:
//
//	w := warmup.New(proxy, warmup.DefaultConfig())
//	result := w.Warm(ctx, tenantCtx, []string{"/", "about", "events"})
//	log.Info().Int("warmed", result.Warmed).Msg("done")
package warmup
