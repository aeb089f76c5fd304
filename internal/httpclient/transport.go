// Package httpclient carries the HTTP plumbing shared by the client: an
// authenticating round tripper with debug tracing.
package httpclient

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// AuthTransport implements http.RoundTripper, adds Basic Auth credentials to
// outgoing requests and traces request/response at debug level.
type AuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewAuthTransport creates a new AuthTransport with the given credentials and
// optional underlying transport. If transport is nil, http.DefaultTransport
// will be used.
func NewAuthTransport(username, password string, transport http.RoundTripper, logger *slog.Logger) *AuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &AuthTransport{
		Username:  username,
		Password:  password,
		Transport: transport,
		Logger:    logger,
	}
}

// replayable reads a body fully and hands back a fresh reader plus the bytes.
func replayable(body io.ReadCloser) (io.ReadCloser, string) {
	if body == nil {
		return nil, ""
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return body, ""
	}
	return io.NopCloser(bytes.NewReader(data)), string(data)
}

// RoundTrip implements the http.RoundTripper interface. It adds the
// credentials to the request and delegates to the underlying transport.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Username == "" {
		return nil, errors.New("basic auth username cannot be empty")
	}
	if t.Password == "" {
		return nil, errors.New("basic auth password cannot be empty")
	}
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	reqBody := ""
	req.Body, reqBody = replayable(req.Body)
	t.Logger.Debug("outgoing request",
		"method", req.Method,
		"url", req.URL.String(),
		"headers", req.Header,
		"body", reqBody)

	req.SetBasicAuth(t.Username, t.Password)
	resp, err := t.Transport.RoundTrip(req)

	if err == nil && resp != nil {
		respBody := ""
		resp.Body, respBody = replayable(resp.Body)
		t.Logger.Debug("incoming response",
			"status", resp.Status,
			"headers", resp.Header,
			"body", respBody)
	}

	return resp, err
}
