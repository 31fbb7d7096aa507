// Package client provides the content API HTTP client used by the caching proxy.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/congregation-site/pkg/tenant"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Content API paths.
const (
	HomepagePath = "/api/website/homepage"
	PagesPath    = "/api/website/pages/"
)

// DefaultTimeout bounds every upstream fetch.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 10 << 20

// Prometheus metrics for content API operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "church_upstream_requests_total",
		Help: "Total content API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "church_upstream_request_duration_seconds",
		Help:    "Content API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "church_upstream_errors_total",
		Help: "Total content API errors by class",
	}, []string{"class"})

	upstreamRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "church_upstream_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})
)

var tracer = otel.Tracer("github.com/Sternrassler/congregation-site/pkg/client")

// ErrorClass represents a classification of upstream errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassInvalid represents a success response whose body is not a document.
	ErrorClassInvalid ErrorClass = "invalid_response"
)

// Client performs authenticated GET requests against the content API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the content API, e.g. "https://api.example.org"
	BaseURL string

	// Timeout bounds one fetch including retries
	Timeout time.Duration

	// UserAgent header sent upstream
	UserAgent string

	// Retry policy; the default is a single attempt
	Retry RetryConfig
}

// DefaultConfig returns the default configuration for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		Timeout:   DefaultTimeout,
		UserAgent: "congregation-site/0.1.0",
		Retry:     DefaultRetryConfig(),
	}
}

// New creates a new content API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		logger:  log.With().Str("component", "content-client").Logger(),
	}, nil
}

// Homepage fetches the tenant's homepage document.
func (c *Client) Homepage(ctx context.Context, t tenant.Context) (Document, error) {
	return c.Fetch(ctx, t, HomepagePath, nil)
}

// Page fetches the document for a page slug, forwarding query filters.
func (c *Client) Page(ctx context.Context, t tenant.Context, slug string, query map[string]string) (Document, error) {
	return c.Fetch(ctx, t, PagePath(slug), query)
}

// PagePath returns the content API path for a slug. Slashes in the slug are kept.
func PagePath(slug string) string {
	segments := strings.Split(strings.Trim(slug, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return PagesPath + strings.Join(segments, "/")
}

// Fetch performs a GET of path for tenant t and decodes the document.
//
// Exactly one of bearer token or X-Church-Domain is sent, following the
// tenant's identity. Non-2xx statuses fail with *UpstreamError and are never
// replaced by default content.
func (c *Client) Fetch(ctx context.Context, t tenant.Context, path string, query map[string]string) (Document, error) {
	if t.IsZero() {
		return nil, tenant.ErrUnresolvedTenant
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	endpoint := endpointLabel(path)
	ctx, span := tracer.Start(ctx, "content.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("content.endpoint", endpoint),
			attribute.String("url.path", path),
			attribute.String("tenant.kind", t.Kind().String()),
		),
	)
	defer span.End()

	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var doc Document
	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		d, err := c.do(ctx, t, path, query, endpoint)
		if err != nil {
			return err
		}
		doc = d
		return nil
	}, classifyError)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream fetch failed")
		if ue, ok := AsUpstreamError(err); ok {
			span.SetAttributes(attribute.Int("http.response.status_code", ue.StatusCode))
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", http.StatusOK))
	return doc, nil
}

// do performs a single upstream attempt.
func (c *Client) do(ctx context.Context, t tenant.Context, path string, query map[string]string, endpoint string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if token, ok := t.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	} else if domain, ok := t.Domain(); ok {
		req.Header.Set(tenant.HeaderDomain, domain)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("path", path).
		Str("tenant", t.String()).
		Msg("Executing upstream request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		upstreamRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Warn().Err(err).Str("path", path).Msg("Upstream request failed")
		return nil, &UpstreamError{ErrorClass: ErrorClassNetwork, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &UpstreamError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, Err: fmt.Errorf("read body: %w", err)}
	}

	upstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errClass := classifyStatus(resp.StatusCode)
		upstreamErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("path", path).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(errClass)).
			Str("tenant", t.String()).
			Msg("Upstream request error")

		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       truncateBody(body),
			ErrorClass: errClass,
		}
	}

	doc, err := DecodeDocument(body)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassInvalid)).Inc()
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       truncateBody(body),
			ErrorClass: ErrorClassInvalid,
			Err:        err,
		}
	}

	return doc, nil
}

// buildURL joins base URL, path and the non-empty query parameters.
func (c *Client) buildURL(path string, query map[string]string) string {
	u := c.baseURL + path
	values := url.Values{}
	for k, v := range query {
		if v != "" {
			values.Set(k, v)
		}
	}
	if len(values) > 0 {
		u += "?" + values.Encode()
	}
	return u
}

// classifyError categorizes an attempt error for retry decisions.
func classifyError(err error) ErrorClass {
	if ue, ok := AsUpstreamError(err); ok {
		return ue.ErrorClass
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorClassNetwork
	}
	return ""
}

// classifyStatus maps a non-2xx status to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassInvalid
	}
}

// endpointLabel keeps metric cardinality bounded.
func endpointLabel(path string) string {
	switch {
	case path == HomepagePath:
		return "homepage"
	case strings.HasPrefix(path, PagesPath):
		return "page"
	default:
		return "other"
	}
}
