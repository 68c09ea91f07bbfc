package source

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Client fetches the remote bulk dataset.
type Client struct {
	url        string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for the given dataset URL.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		userAgent: "freight-pipeline/1.0",
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// SourceError represents an HTTP-level failure from the remote source.
type SourceError struct {
	StatusCode int
	Message    string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *SourceError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
