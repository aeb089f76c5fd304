package davclient

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

const (
	// AcceptHeader is the content type requested when reading calendar resources.
	AcceptHeader = "application/calendar+json"

	// ContentTypeHeader is the content type of iCalendar request bodies.
	ContentTypeHeader = "text/calendar; charset=utf-8"

	// GraceDelay is the grace period requested on asynchronous writes, in
	// milliseconds. The backend acknowledges such writes with an operation id
	// instead of a final result.
	GraceDelay = 10000
)

// Client talks to an ESN-style DAV proxy: calendar resources, their sharing
// grants and their public visibility.
type Client struct {
	client  *http.Client
	baseURL url.URL
	logger  *slog.Logger
}

// NewClient creates a new configuration client. The http.Client carries the
// transport (see internal/httpclient for an authenticating one).
func NewClient(client *http.Client, baseURL url.URL, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{client: client, baseURL: baseURL, logger: logger}, nil
}

// resolveURL resolves a URL string against the base URL
func (c *Client) resolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}
