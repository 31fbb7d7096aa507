package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/congregation-site/internal/testutil"
	"github.com/Sternrassler/congregation-site/pkg/cache"
	"github.com/Sternrassler/congregation-site/pkg/client"
	"github.com/Sternrassler/congregation-site/pkg/proxy"
	"github.com/Sternrassler/congregation-site/pkg/tenant"
	"github.com/Sternrassler/congregation-site/pkg/view"
	"github.com/Sternrassler/congregation-site/pkg/warmup"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type testEnv struct {
	mock    *testutil.MockAPI
	store   *cache.MemoryStore
	handler http.Handler
}

func setupServer(t *testing.T, token string, ttl time.Duration) *testEnv {
	t.Helper()

	mock := testutil.NewMockAPI()
	t.Cleanup(mock.Close)

	c, err := client.New(client.DefaultConfig(mock.URL()))
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}

	store := cache.NewMemoryStore()
	p := proxy.New(store, c, proxy.Config{TTL: ttl}, zerolog.Nop())

	srv := &server{
		proxy:    p,
		resolver: tenant.NewResolver(token),
		warmer:   warmup.New(p, warmup.DefaultConfig()),
		theme:    "default",
		store:    store,
		logger:   zerolog.Nop(),
	}

	return &testEnv{mock: mock, store: store, handler: srv.routes()}
}

func (e *testEnv) do(t *testing.T, method, target string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w.Result()
}

func decodeView(t *testing.T, resp *http.Response) view.ViewModel {
	t.Helper()
	var vm view.ViewModel
	if err := json.NewDecoder(resp.Body).Decode(&vm); err != nil {
		t.Fatalf("decode view model: %v", err)
	}
	return vm
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	handler := readyHandler(cache.NewRedisStore(redisClient))

	t.Run("ready", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/ready", nil))

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("not_ready_redis_down", func(t *testing.T) {
		mr.Close()

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/ready", nil))

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})

	t.Run("memory_store_always_ready", func(t *testing.T) {
		w := httptest.NewRecorder()
		readyHandler(cache.NewMemoryStore())(w, httptest.NewRequest("GET", "/ready", nil))

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupServer(t, "", time.Minute)

	// One request so the labelled upstream metrics have samples.
	env.do(t, "GET", "/", nil)

	resp := env.do(t, "GET", "/metrics", nil)
	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
	if !strings.Contains(bodyStr, "church_upstream_requests_total") {
		t.Error("Expected metrics output to contain church_upstream_requests_total")
	}
}

func TestHomepage_MultiTenant(t *testing.T) {
	env := setupServer(t, "", time.Minute)

	resp := env.do(t, "GET", "http://a.example.com/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	vm := decodeView(t, resp)
	if vm.View != "home" {
		t.Errorf("View = %q, want home", vm.View)
	}
	if vm.SiteName != "Test Church" {
		t.Errorf("SiteName = %q, want Test Church", vm.SiteName)
	}
	if got := env.mock.LastRequestHeader().Get(tenant.HeaderDomain); got != "a.example.com" {
		t.Errorf("upstream domain header = %q, want a.example.com", got)
	}
	if resp.Header.Get("ETag") == "" {
		t.Error("ETag header should be set")
	}
	if got := resp.Header.Get("Cache-Control"); got != "public, max-age=60" {
		t.Errorf("Cache-Control = %q", got)
	}

	env.do(t, "GET", "http://a.example.com/", nil)
	env.do(t, "GET", "http://b.example.com:8080/", nil)

	if n := env.mock.PathCount(testutil.HomepagePath); n != 2 {
		t.Errorf("upstream homepage calls = %d, want 2 (one per tenant)", n)
	}
	for _, key := range []string{
		"church:a_example_com:website:homepage:v1",
		"church:b_example_com:website:homepage:v1",
	} {
		if _, ok, _ := env.store.Get(t.Context(), key); !ok {
			t.Errorf("expected cache entry %s", key)
		}
	}
}

func TestPage_FiltersForwarded(t *testing.T) {
	env := setupServer(t, "abc123", time.Minute)

	resp := env.do(t, "GET", "/sermons?year=2024&speaker=&foo=bar&month=5", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	q := env.mock.LastQuery()
	if q["year"][0] != "2024" || q["month"][0] != "5" {
		t.Errorf("forwarded query = %v", q)
	}
	if _, ok := q["foo"]; ok {
		t.Error("non-whitelisted parameter should not be forwarded")
	}
	if _, ok := q["speaker"]; ok {
		t.Error("empty filter should not be forwarded")
	}

	env.do(t, "GET", "/sermons?month=5&year=2024", nil)
	if n := env.mock.PathCount(testutil.PagesPrefix + "sermons"); n != 1 {
		t.Errorf("reordered query should hit the cache, upstream calls = %d", n)
	}
}

func TestPage_UpstreamStatusMirrored(t *testing.T) {
	tests := []struct {
		name       string
		resp       testutil.MockResponse
		wantStatus int
	}{
		{"not found", testutil.NewNotFoundResponse(), http.StatusNotFound},
		{"forbidden", testutil.NewForbiddenResponse(), http.StatusForbidden},
		{"server error", testutil.NewServerErrorResponse(), http.StatusInternalServerError},
		{"garbage body", testutil.NewJSONResponse("<html>"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupServer(t, "abc123", time.Minute)
			env.mock.SetPageResponse("missing", tt.resp)

			resp := env.do(t, "GET", "/missing", nil)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if resp.Header.Get("Cache-Control") != "no-store" {
				t.Errorf("error responses should not be storable, got %q", resp.Header.Get("Cache-Control"))
			}

			env.do(t, "GET", "/missing", nil)
			if n := env.mock.PathCount(testutil.PagesPrefix + "missing"); n != 2 {
				t.Errorf("failures must not be cached, upstream calls = %d", n)
			}
		})
	}
}

func TestPage_DocumentStatusAndTemplate(t *testing.T) {
	env := setupServer(t, "abc123", time.Minute)
	env.mock.SetPageResponse("gospel", testutil.NewJSONResponse(
		`{"_template":"content-page","_status":410,"pageTitle":"The Gospel","theme":{"name":"harvest"}}`))

	resp := env.do(t, "GET", "/gospel", nil)
	if resp.StatusCode != http.StatusGone {
		t.Errorf("Expected status 410, got %d", resp.StatusCode)
	}
	vm := decodeView(t, resp)
	if vm.View != "gospel" || vm.Theme != "harvest" {
		t.Errorf("View/Theme = %q/%q, want gospel/harvest", vm.View, vm.Theme)
	}
}

func TestPage_ConditionalRequest(t *testing.T) {
	env := setupServer(t, "abc123", time.Minute)

	first := env.do(t, "GET", "/about", nil)
	etag := first.Header.Get("ETag")
	if etag == "" {
		t.Fatal("ETag header should be set")
	}

	second := env.do(t, "GET", "/about", map[string]string{"If-None-Match": etag})
	if second.StatusCode != http.StatusNotModified {
		t.Errorf("Expected status 304, got %d", second.StatusCode)
	}

	third := env.do(t, "GET", "/about", map[string]string{"If-None-Match": `"stale"`})
	if third.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", third.StatusCode)
	}
}

func TestCachingDisabled(t *testing.T) {
	env := setupServer(t, "abc123", 0)

	for i := 0; i < 3; i++ {
		resp := env.do(t, "GET", "/about", nil)
		if resp.Header.Get("Cache-Control") != "no-store" {
			t.Errorf("Cache-Control = %q, want no-store", resp.Header.Get("Cache-Control"))
		}
	}
	if n := env.mock.PathCount(testutil.PagesPrefix + "about"); n != 3 {
		t.Errorf("upstream calls = %d, want 3", n)
	}
}

func TestClearCache_SingleTenant(t *testing.T) {
	env := setupServer(t, "abc123", time.Minute)

	env.do(t, "GET", "/about", nil)

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{"missing secret", nil, http.StatusForbidden},
		{"wrong secret", map[string]string{tenant.HeaderCacheSecret: "nope"}, http.StatusForbidden},
		{"domain header is not enough", map[string]string{tenant.HeaderDomain: "a.example.com"}, http.StatusForbidden},
		{"valid secret", map[string]string{tenant.HeaderCacheSecret: "abc123"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, "POST", "/api/clear-cache", tt.headers)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}

			var body map[string]any
			json.NewDecoder(resp.Body).Decode(&body)
			if ok := body["ok"] == true; ok != (tt.wantStatus == http.StatusOK) {
				t.Errorf("body = %v", body)
			}
		})
	}

	env.do(t, "GET", "/about", nil)
	if n := env.mock.PathCount(testutil.PagesPrefix + "about"); n != 2 {
		t.Errorf("read after invalidation should refetch, upstream calls = %d", n)
	}
}

func TestClearCache_MultiTenant(t *testing.T) {
	env := setupServer(t, "", time.Minute)

	env.do(t, "GET", "http://a.example.com/", nil)
	env.do(t, "GET", "http://b.example.com/", nil)

	resp := env.do(t, "POST", "/api/clear-cache", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("missing domain header: expected 403, got %d", resp.StatusCode)
	}

	resp = env.do(t, "POST", "/api/clear-cache", map[string]string{tenant.HeaderDomain: "A.Example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	env.do(t, "GET", "http://a.example.com/", nil)
	env.do(t, "GET", "http://b.example.com/", nil)

	if n := env.mock.PathCount(testutil.HomepagePath); n != 3 {
		t.Errorf("upstream homepage calls = %d, want 3 (a refetched, b cached)", n)
	}
}

func TestFilters(t *testing.T) {
	req := httptest.NewRequest("GET", "/events?year=2024&month=&book=John&utm_source=x", nil)
	got := filters(req)

	if len(got) != 2 || got["year"] != "2024" || got["book"] != "John" {
		t.Errorf("filters() = %v", got)
	}
}
