package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/congregation-site/pkg/cache"
	"github.com/Sternrassler/congregation-site/pkg/client"
	"github.com/Sternrassler/congregation-site/pkg/tenant"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Fetcher retrieves documents from the content API.
// *client.Client implements it.
type Fetcher interface {
	Homepage(ctx context.Context, t tenant.Context) (client.Document, error)
	Page(ctx context.Context, t tenant.Context, slug string, query map[string]string) (client.Document, error)
}

// Config holds the caching policy.
type Config struct {
	// TTL of cached documents; <= 0 disables caching
	TTL time.Duration

	// VersionTTL of the per-tenant version counter; 0 means the counter
	// never expires. A positive value is raised to at least TTL, and a
	// counter recreated after expiry starts from the clock so versions
	// never repeat.
	VersionTTL time.Duration
}

// Proxy serves content documents for a tenant through the cache store.
type Proxy struct {
	store   cache.Store
	fetcher Fetcher
	config  Config
	group   singleflight.Group
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a caching proxy.
func New(store cache.Store, fetcher Fetcher, cfg Config, logger zerolog.Logger) *Proxy {
	if store == nil {
		panic("proxy: store must not be nil")
	}
	if fetcher == nil {
		panic("proxy: fetcher must not be nil")
	}

	if cfg.VersionTTL < 0 {
		cfg.VersionTTL = 0
	}
	if cfg.VersionTTL > 0 && cfg.TTL > 0 && cfg.VersionTTL < cfg.TTL {
		cfg.VersionTTL = cfg.TTL
	}

	return &Proxy{
		store:   store,
		fetcher: fetcher,
		config:  cfg,
		logger:  logger.With().Str("component", "proxy").Logger(),
		now:     time.Now,
	}
}

// Enabled reports whether documents are cached.
func (p *Proxy) Enabled() bool {
	return p.config.TTL > 0
}

// TTL returns the configured document TTL.
func (p *Proxy) TTL() time.Duration {
	return p.config.TTL
}

// Homepage returns the tenant's homepage document.
func (p *Proxy) Homepage(ctx context.Context, t tenant.Context) (client.Document, error) {
	return p.read(ctx, t, cache.HomepageKey, func(ctx context.Context) (client.Document, error) {
		return p.fetcher.Homepage(ctx, t)
	})
}

// Page returns the document for slug. Parameter order in query never
// produces a second cache entry.
func (p *Proxy) Page(ctx context.Context, t tenant.Context, slug string, query map[string]string) (client.Document, error) {
	return p.read(ctx, t, cache.PageKey(slug, query), func(ctx context.Context) (client.Document, error) {
		return p.fetcher.Page(ctx, t, slug, query)
	})
}

// Invalidate makes every document cached for t unreachable by bumping the
// tenant's version counter. It returns the new version.
func (p *Proxy) Invalidate(ctx context.Context, t tenant.Context) (int64, error) {
	if t.IsZero() {
		return 0, tenant.ErrUnresolvedTenant
	}

	prefix := t.CachePrefix()
	version, err := p.store.Incr(ctx, cache.VersionKey(prefix), p.versionBase(), p.config.VersionTTL)
	if err != nil {
		cacheInvalidationsTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("invalidate %s: %w", prefix, err)
	}

	cacheInvalidationsTotal.WithLabelValues("success").Inc()
	p.logger.Info().
		Str("tenant", prefix).
		Int64("version", version).
		Msg("Cache invalidated")

	return version, nil
}

// Version returns the tenant's current cache version (1 when never invalidated).
func (p *Proxy) Version(ctx context.Context, t tenant.Context) (int64, error) {
	if t.IsZero() {
		return 0, tenant.ErrUnresolvedTenant
	}
	return p.version(ctx, t.CachePrefix())
}

// versionBase is the value an absent counter is incremented from.
// An expiring counter may vanish while entries written under it are still
// live, so its replacement must start above every version it ever held.
func (p *Proxy) versionBase() int64 {
	if p.config.VersionTTL <= 0 {
		return 1
	}
	return p.now().UnixNano()
}

func (p *Proxy) version(ctx context.Context, prefix string) (int64, error) {
	v, ok, err := p.store.GetInt(ctx, cache.VersionKey(prefix))
	if err != nil {
		return 0, err
	}
	if !ok || v < 1 {
		return 1, nil
	}
	return v, nil
}

type fetchFunc func(ctx context.Context) (client.Document, error)

// read implements get-or-compute over the versioned key.
func (p *Proxy) read(ctx context.Context, t tenant.Context, logical string, fetch fetchFunc) (client.Document, error) {
	if t.IsZero() {
		return nil, tenant.ErrUnresolvedTenant
	}

	if !p.Enabled() {
		cacheBypassTotal.WithLabelValues("disabled").Inc()
		return fetch(ctx)
	}

	prefix := t.CachePrefix()
	version, err := p.version(ctx, prefix)
	if err != nil {
		return p.degrade(ctx, prefix, logical, err, fetch)
	}

	key := cache.Key{Prefix: prefix, Logical: logical, Version: version}.String()

	doc, hit, err := p.lookup(ctx, key)
	if err != nil {
		return p.degrade(ctx, prefix, key, err, fetch)
	}
	if hit {
		return doc, nil
	}

	p.logger.Debug().
		Str("tenant", prefix).
		Str("key", key).
		Bool("cache_hit", false).
		Msg("Cache miss")

	raw, err, shared := p.group.Do(key, func() (any, error) {
		return p.compute(ctx, key, version, fetch)
	})
	if shared {
		cacheCoalescedTotal.Inc()
	}
	if err != nil {
		// The leader's request was cancelled; this caller is still live.
		if shared && errors.Is(err, context.Canceled) && ctx.Err() == nil {
			return fetch(ctx)
		}
		return nil, err
	}

	return client.DecodeDocument(raw.([]byte))
}

// lookup reads and decodes the entry at key.
func (p *Proxy) lookup(ctx context.Context, key string) (client.Document, bool, error) {
	data, ok, err := p.store.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	entry, err := cache.UnmarshalEntry(data)
	if err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("Ignoring unreadable cache entry")
		return nil, false, nil
	}

	doc, err := client.DecodeDocument(entry.Data)
	if err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("Ignoring unreadable cache entry")
		return nil, false, nil
	}

	p.logger.Debug().
		Str("key", key).
		Bool("cache_hit", true).
		Dur("age", entry.Age()).
		Dur("remaining", entry.TTL()).
		Msg("Serving cached document")
	return doc, true, nil
}

// compute fetches upstream and stores the encoded document if no other
// writer got there first. Only successful fetches reach the store.
func (p *Proxy) compute(ctx context.Context, key string, version int64, fetch fetchFunc) ([]byte, error) {
	start := time.Now()
	doc, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	data, err := cache.NewEntry(raw, version, p.config.TTL).Marshal()
	if err != nil {
		return nil, err
	}

	stored, err := p.store.Add(ctx, key, data, p.config.TTL)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("key", key).
			Msg("Failed to store document, serving uncached")
		return raw, nil
	}

	p.logger.Debug().
		Str("key", key).
		Bool("stored", stored).
		Dur("duration", time.Since(start)).
		Dur("ttl", p.config.TTL).
		Msg("Fetched document")

	return raw, nil
}

// degrade serves a read straight from upstream after a cache store failure.
func (p *Proxy) degrade(ctx context.Context, prefix, key string, cause error, fetch fetchFunc) (client.Document, error) {
	cacheBypassTotal.WithLabelValues("store_error").Inc()
	p.logger.Warn().
		Err(cause).
		Str("tenant", prefix).
		Str("key", key).
		Msg("Cache store unavailable, fetching directly")
	return fetch(ctx)
}
