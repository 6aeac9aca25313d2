package clients

import (
	"context"
	"net/http"
	"time"
)

// Logger interface for HTTP client logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// HTTPClient wraps http.Client with context-aware helpers for origin
// fetches. It is created once at startup and shared by all requests.
type HTTPClient struct {
	client *http.Client
	logger Logger
}

// NewHTTPClient creates a new HTTP client wrapper.
// The client has no overall timeout: media bodies stream for as long as the
// request context allows, while dial and TLS handshake stay bounded.
func NewHTTPClient(logger Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &HTTPClient{
		client: &http.Client{Transport: transport},
		logger: logger,
	}
}

// NewHTTPClientWith wraps an existing http.Client (used by tests)
func NewHTTPClientWith(client *http.Client, logger Logger) *HTTPClient {
	return &HTTPClient{
		client: client,
		logger: logger,
	}
}

// Get issues a GET request bound to ctx
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("origin GET", "url", url)
	return c.client.Do(req)
}
