package warmup

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/congregation-site/pkg/client"
	"github.com/Sternrassler/congregation-site/pkg/tenant"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// HomepagePath selects the homepage in a path list.
const HomepagePath = "/"

var warmupPagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "church_warmup_pages_total",
		Help: "Total number of pages warmed after invalidation by result",
	},
	[]string{"result"}, // "success", "error"
)

// Config holds warmer configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page reads
	MaxConcurrency int
	// Timeout per page read
	Timeout time.Duration
	// Deadline bounds a detached warm run started with Start
	Deadline time.Duration
}

// DefaultConfig returns default warmer configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        10 * time.Second,
		Deadline:       time.Minute,
	}
}

// Reader is the read side of the caching proxy.
type Reader interface {
	Homepage(ctx context.Context, t tenant.Context) (client.Document, error)
	Page(ctx context.Context, t tenant.Context, slug string, query map[string]string) (client.Document, error)
}

// Result summarizes one warm run.
type Result struct {
	Warmed   int
	Failed   int
	Errors   map[string]error
	Duration time.Duration
}

// Warmer reads pages through the proxy so they get cached.
type Warmer struct {
	reader Reader
	config Config
}

// New creates a warmer.
func New(reader Reader, config Config) *Warmer {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Deadline <= 0 {
		config.Deadline = defaults.Deadline
	}

	return &Warmer{
		reader: reader,
		config: config,
	}
}

// ParsePaths splits a comma-separated path list. Blank items and duplicates
// are dropped; "/" (or an empty slug after trimming) means the homepage.
func ParsePaths(s string) []string {
	var paths []string
	seen := make(map[string]bool)

	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		p := normalize(item)
		if seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}

func normalize(path string) string {
	slug := strings.Trim(path, "/")
	if slug == "" {
		return HomepagePath
	}
	return slug
}

// Warm reads every path for tenant t. Failures are collected, never fatal.
func (w *Warmer) Warm(ctx context.Context, t tenant.Context, paths []string) Result {
	start := time.Now()
	result := Result{Errors: make(map[string]error)}
	if len(paths) == 0 {
		return result
	}

	log.Info().
		Str("tenant", t.String()).
		Int("paths", len(paths)).
		Msg("Starting cache warmup")

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(w.config.MaxConcurrency)

	for _, path := range paths {
		path := normalize(path)
		g.Go(func() error {
			if ctx.Err() != nil {
				mu.Lock()
				result.Failed++
				result.Errors[path] = ctx.Err()
				mu.Unlock()
				return nil
			}

			err := w.warmOne(ctx, t, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				warmupPagesTotal.WithLabelValues("error").Inc()
				log.Warn().
					Err(err).
					Str("tenant", t.String()).
					Str("path", path).
					Msg("Warmup fetch failed")
				result.Failed++
				result.Errors[path] = err
				return nil
			}
			warmupPagesTotal.WithLabelValues("success").Inc()
			result.Warmed++
			return nil
		})
	}

	_ = g.Wait()
	result.Duration = time.Since(start)

	log.Info().
		Str("tenant", t.String()).
		Int("warmed", result.Warmed).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Cache warmup complete")

	return result
}

func (w *Warmer) warmOne(ctx context.Context, t tenant.Context, path string) error {
	pageCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	if path == HomepagePath {
		_, err := w.reader.Homepage(pageCtx, t)
		return err
	}
	_, err := w.reader.Page(pageCtx, t, path, nil)
	return err
}

// Start runs Warm detached from any request, bounded by the configured
// deadline. The returned channel delivers the result and is then closed.
func (w *Warmer) Start(t tenant.Context, paths []string) <-chan Result {
	done := make(chan Result, 1)
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), w.config.Deadline)
		defer cancel()
		done <- w.Warm(ctx, t, paths)
	}()
	return done
}
