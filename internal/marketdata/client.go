package marketdata

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rickgao/ares/internal/cache"
	"github.com/rickgao/ares/internal/metrics"
)

// Default client settings.
const (
	DefaultBaseURL = "https://marketdataapi.com"
	DefaultTimeout = 30 * time.Second
)

// Client fetches market snapshots from the provider.
type Client struct {
	baseURL    string
	credential string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.Engine

	cache       cache.Store
	readThrough bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a provider client authenticating with credential.
// The credential is sent as-is and never logged.
func NewClient(credential string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		credential: credential,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:  slog.Default(),
		metrics: metrics.NilEngine{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client. The client is copied, so a later
// WithTimeout does not modify hc; an earlier one is replaced by hc.Timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		cp := *hc
		c.httpClient = &cp
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics engine.
func WithMetrics(m metrics.Engine) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithCache records every successful snapshot in store.
func WithCache(store cache.Store) ClientOption {
	return func(c *Client) {
		c.cache = store
	}
}

// WithReadThrough makes FetchMarketData answer from the cache when it holds
// the market. It has no effect without WithCache.
func WithReadThrough(enabled bool) ClientOption {
	return func(c *Client) {
		c.readThrough = enabled
	}
}

// Cache returns the configured snapshot store, or nil.
func (c *Client) Cache() cache.Store {
	return c.cache
}
