package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/congregation-site/pkg/cache"
	"github.com/Sternrassler/congregation-site/pkg/client"
	"github.com/Sternrassler/congregation-site/pkg/metrics"
	"github.com/Sternrassler/congregation-site/pkg/proxy"
	"github.com/Sternrassler/congregation-site/pkg/tenant"
	"github.com/Sternrassler/congregation-site/pkg/view"
	"github.com/Sternrassler/congregation-site/pkg/warmup"
	"github.com/rs/zerolog"
)

// pageFilters are the query parameters forwarded to the content API.
var pageFilters = []string{"year", "month", "search", "speaker", "series", "book", "page"}

type server struct {
	proxy     *proxy.Proxy
	resolver  *tenant.Resolver
	warmer    *warmup.Warmer
	warmPaths []string
	theme     string
	store     cache.Store
	logger    zerolog.Logger
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler(s.store))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("POST /api/clear-cache", s.clearCacheHandler)
	mux.HandleFunc("GET /{$}", s.homepageHandler)
	mux.HandleFunc("GET /{path...}", s.pageHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler reports 503 while a remote cache store is unreachable.
func readyHandler(store cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger, ok := store.(cache.Pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.Ping(ctx); err != nil {
				http.Error(w, "cache store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	}
}

func (s *server) homepageHandler(w http.ResponseWriter, r *http.Request) {
	t, err := s.resolver.FromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	doc, err := s.proxy.Homepage(r.Context(), t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeView(w, r, view.Homepage(doc, s.theme))
}

func (s *server) pageHandler(w http.ResponseWriter, r *http.Request) {
	t, err := s.resolver.FromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	path := strings.Trim(r.PathValue("path"), "/")
	if path == "" {
		s.homepageHandler(w, r)
		return
	}

	doc, err := s.proxy.Page(r.Context(), t, path, filters(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeView(w, r, view.Page(doc, path, s.theme))
}

func (s *server) clearCacheHandler(w http.ResponseWriter, r *http.Request) {
	t, err := s.resolver.InvalidationFromRequest(r)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("remote_addr", r.RemoteAddr).
			Msg("Rejected cache invalidation")
		writeJSON(w, http.StatusForbidden, map[string]any{"ok": false, "error": "forbidden"})
		return
	}

	if _, err := s.proxy.Invalidate(r.Context(), t); err != nil {
		s.logger.Error().Err(err).Str("tenant", t.String()).Msg("Cache invalidation failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "cache unavailable"})
		return
	}

	if len(s.warmPaths) > 0 && s.proxy.Enabled() {
		s.warmer.Start(t, s.warmPaths)
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// filters extracts the forwarded query filters; empty values are dropped.
func filters(r *http.Request) map[string]string {
	q := r.URL.Query()
	out := make(map[string]string)
	for _, name := range pageFilters {
		if v := q.Get(name); v != "" {
			out[name] = v
		}
	}
	return out
}

// writeView encodes vm and answers 304 when the client already has it.
func (s *server) writeView(w http.ResponseWriter, r *http.Request, vm view.ViewModel) {
	body, err := json.Marshal(vm)
	if err != nil {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to encode view model")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	etag := cache.ETag(body)
	ttl := time.Duration(0)
	if vm.Status == http.StatusOK {
		ttl = s.proxy.TTL()
	}
	cache.SetCacheHeaders(w.Header(), etag, ttl)

	if vm.Status == http.StatusOK && cache.NotModified(r, etag) {
		s.logger.Debug().Str("path", r.URL.Path).Str("etag", etag).Msg("Not modified")
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(vm.Status)
	w.Write(body)
}

// writeError mirrors upstream statuses and rejects unresolved tenants.
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tenant.ErrUnresolvedTenant):
		status = http.StatusForbidden
	default:
		if ue, ok := client.AsUpstreamError(err); ok {
			status = ue.HTTPStatus()
		}
	}

	if status >= 500 {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Int("status_code", status).Msg("Request failed")
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, status, map[string]any{
		"error":  http.StatusText(status),
		"status": status,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
