// Package openlibrary looks up cover art from the Open Library covers API.
package openlibrary

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/marginalia-app/marginalia-server/internal/ratelimit"
)

const (
	// DefaultBaseURL is the Open Library covers host.
	DefaultBaseURL = "https://covers.openlibrary.org"

	// rateLimitKey buckets all Open Library requests under one limiter key.
	rateLimitKey = "covers.openlibrary.org"
)

// Client builds Open Library cover URLs and paces outbound requests.
// Open Library asks bulk users to stay under ~100 requests per 5 minutes,
// so lookups go through a shared rate limiter.
type Client struct {
	baseURL string
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates an Open Library client.
func New(limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		limiter: limiter,
		logger:  logger,
	}
}

// NewWithBaseURL creates a client against a custom host. Used in tests.
func NewWithBaseURL(baseURL string, limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		limiter: limiter,
		logger:  logger,
	}
}

// CoverURL returns the large-size cover URL for an ISBN, waiting on the
// rate limiter first. The ?default=false suffix makes Open Library answer
// 404 instead of a placeholder image when it has no cover.
func (c *Client) CoverURL(ctx context.Context, isbn string) (string, error) {
	if isbn == "" {
		return "", fmt.Errorf("isbn is required")
	}

	if err := c.limiter.Wait(ctx, rateLimitKey); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	return fmt.Sprintf("%s/b/isbn/%s-L.jpg?default=false", c.baseURL, url.PathEscape(isbn)), nil
}
