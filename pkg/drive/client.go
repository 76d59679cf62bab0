// Package drive provides an HTTP client for the Rixian Drive API with
// per-operation resilience policies and typed response decoding.
//
// Every operation is exposed three ways: XxxResponse returns the raw
// *http.Response, XxxResult decodes it into a Result, and Xxx returns the
// plain (value, error) form where service failures become *APIError.
package drive

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Client defaults.
const (
	DefaultAPIKeyHeader = "Subscription-Key"
	DefaultAPIVersion   = "2019-09-01"
	DefaultUserAgent    = "drive-go/0.1"
)

// Client is safe for concurrent use and immutable after NewClient.
type Client struct {
	baseURL       *url.URL
	httpClient    *http.Client
	token         TokenSource
	logger        *slog.Logger
	apiKeyHeader  string
	apiKey        string
	apiVersion    string
	userAgent     string
	policies      map[string]Policy
	defaultPolicy Policy
	interceptors  []Interceptor
	registerer    prometheus.Registerer
	metrics       *metrics
}

// Interceptor runs once per call before any attempt. It may adjust the
// request; a non-nil error aborts the call without I/O.
type Interceptor func(ctx context.Context, op Operation, req *Request) error

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport. The default is NewHTTPClient with
// DefaultRequestTimeout and TLS 1.2.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource sets the bearer token provider. Without one no
// Authorization header is sent.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithAPIKey sends key in the given header on every request. An empty header
// name selects DefaultAPIKeyHeader.
func WithAPIKey(header, key string) Option {
	return func(c *Client) {
		if header != "" {
			c.apiKeyHeader = header
		}

		c.apiKey = key
	}
}

// WithAPIVersion sets the api-version query parameter.
func WithAPIVersion(v string) Option {
	return func(c *Client) { c.apiVersion = v }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithPolicy attaches a policy to one operation, replacing the default.
func WithPolicy(operation string, p Policy) Option {
	return func(c *Client) { c.policies[operation] = p }
}

// WithDefaultPolicy applies p to every operation without its own policy.
func WithDefaultPolicy(p Policy) Option {
	return func(c *Client) { c.defaultPolicy = p }
}

// WithInterceptor appends interceptors, which run in order.
func WithInterceptor(ics ...Interceptor) Option {
	return func(c *Client) { c.interceptors = append(c.interceptors, ics...) }
}

// WithMetrics registers per-operation attempt counters and latency
// histograms with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) { c.registerer = reg }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("drive: parsing base URL: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("drive: base URL %q must be absolute", baseURL)
	}

	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		baseURL:      u,
		logger:       slog.Default(),
		apiKeyHeader: DefaultAPIKeyHeader,
		apiVersion:   DefaultAPIVersion,
		userAgent:    DefaultUserAgent,
		policies:     make(map[string]Policy),
	}

	for _, opt := range opts {
		opt(c)
	}

	for name := range c.policies {
		if _, ok := catalog[name]; !ok {
			return nil, fmt.Errorf("drive: policy for unknown operation %q", name)
		}
	}

	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(DefaultRequestTimeout, 0)
	}

	if c.registerer != nil {
		m, err := newMetrics(c.registerer)
		if err != nil {
			return nil, err
		}

		c.metrics = m
	}

	return c, nil
}

// BaseURL returns the API root the client sends to.
func (c *Client) BaseURL() string { return c.baseURL.String() }

func (c *Client) policyFor(op Operation) Policy {
	if p, ok := c.policies[op.name]; ok {
		return p
	}

	return c.defaultPolicy
}

// CallOption adjusts a single call.
type CallOption func(*callOptions)

type callOptions struct {
	tenantID uuid.UUID
	header   http.Header
}

// WithTenant scopes the call to a tenant. Without it the tenantId query
// parameter is omitted.
func WithTenant(id uuid.UUID) CallOption {
	return func(o *callOptions) { o.tenantID = id }
}

// WithHeader adds a header to the call.
func WithHeader(key, value string) CallOption {
	return func(o *callOptions) {
		if o.header == nil {
			o.header = make(http.Header)
		}

		o.header.Add(key, value)
	}
}

// newCall builds the request for op and applies call options. The tenantId
// parameter follows the operation's own parameters.
func newCall(op Operation, opts []CallOption, build func(*Request)) *Request {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	req := newRequest(op)
	if build != nil {
		build(req)
	}

	if co.tenantID != uuid.Nil {
		req.SetQuery("tenantId", co.tenantID.String())
	}

	for k, vs := range co.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	return req
}
