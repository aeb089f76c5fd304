package davclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// recordedRequest is one request as seen by the mock transport.
type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

// mockTransport records every request and answers through a test-supplied
// handler. Safe for concurrent use since submits issue requests in parallel.
type mockTransport struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(req recordedRequest) *http.Response
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body := ""
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = string(data)
	}
	recorded := recordedRequest{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.Query(),
		Header: req.Header,
		Body:   body,
	}
	m.mu.Lock()
	m.requests = append(m.requests, recorded)
	handler := m.handler
	m.mu.Unlock()
	if handler == nil {
		return response(http.StatusInternalServerError, "no handler", nil), nil
	}
	return handler(recorded), nil
}

func (m *mockTransport) recorded() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *mockTransport) reset(handler func(req recordedRequest) *http.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.handler = handler
}

// response builds a canned *http.Response for the mock transport.
func response(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(transport http.RoundTripper) *Client {
	baseURL, _ := url.Parse("https://dav.example.com")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, _ := NewClient(&http.Client{Transport: transport}, *baseURL, logger)
	return client
}

// staticDirectory resolves users from a fixed table.
type staticDirectory map[string]User

func (d staticDirectory) User(_ context.Context, userID string) (User, error) {
	user, ok := d[userID]
	if !ok {
		return User{}, fmt.Errorf("unknown user %q", userID)
	}
	return user, nil
}
