package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rickgao/autofilm-dash/internal/version"
)

// Client talks to the AutoFilm REST API under /api.
type Client struct {
	baseURL    string // Server origin without trailing slash
	apiKey     string // Sent as X-API-Key when non-empty
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int           // Extra attempts for retryable GETs
	retryBackoff time.Duration // First retry delay, doubled per attempt
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient returns a client for the server at baseURL, e.g.
// http://localhost:8000.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		apiKey:       apiKey,
		userAgent:    version.UserAgent(),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "api")
	return c
}

// BaseURL returns the server origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetries sets how often a failed GET is retried and the first delay.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}
