// Package cache provides the tenant-scoped cache building blocks with a Redis backend.
//
// The package has four parts:
//
//   - Store: a byte key/value store with TTL expiry, set-if-absent writes and
//     an atomic integer counter. RedisStore is the production backend,
//     MemoryStore serves development and tests.
//   - Keys: deterministic logical keys (homepage, page + canonical query hash)
//     and versioned keys of the form {prefix}:{logical}:v{version}.
//   - Entry: the JSON envelope stored under a versioned key.
//   - HTTP helpers: ETag and Cache-Control handling for responses served from
//     cached documents.
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create store
//	store := cache.NewRedisStore(redisClient)
//
//	// Build a versioned key
//	key := cache.Key{
//		Prefix:  "church:a_example_com",
//		Logical: cache.PageKey("events", map[string]string{"year": "2024"}),
//		Version: 1,
//	}
//
//	// Write once, first writer wins
//	stored, err := store.Add(ctx, key.String(), data, 5*time.Minute)
//
// # Invalidation
//
// Entries are never deleted. Each tenant owns one counter at
// {prefix}:version; bumping it makes every entry written under the previous
// version unreachable, and those entries age out through their TTL.
//
// # Metrics
//
// The stores export Prometheus metrics:
//
//   - church_cache_hits_total{layer} - Cache hits
//   - church_cache_misses_total{layer} - Cache misses
//   - church_cache_errors_total{operation} - Store operation errors
//   - church_cache_writes_total{layer,result} - Set-if-absent outcomes
package cache
