package davclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/samber/mo"
)

// Response is the observed outcome of one request: completion code, headers
// and raw body.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// StatusError reports a response whose completion code fell outside the
// accepted set for the operation. It carries the raw response so the caller
// can inspect it; a conditional-match mismatch surfaces here as a 412.
type StatusError struct {
	Response *Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Response.Status)
}

// Expect builds the completion policy of one operation: the returned function
// invokes handler only when the response status is in codes, and fails with a
// StatusError carrying the response unchanged otherwise. Every write in this
// package judges its response through this single mechanism.
func Expect[T any](codes []int, handler func(*Response) (T, error)) func(*Response) mo.Result[T] {
	return func(resp *Response) mo.Result[T] {
		if !slices.Contains(codes, resp.Status) {
			return mo.Err[T](&StatusError{Response: resp})
		}
		v, err := handler(resp)
		if err != nil {
			return mo.Err[T](err)
		}
		return mo.Ok(v)
	}
}

// OperationID identifies a backend-side operation accepted under a grace
// period and not yet guaranteed complete. Nothing in this package polls it;
// tracking completion is the caller's responsibility.
type OperationID string

// operationID parses the {"id": ...} acknowledgment body of a grace-period write.
func operationID(resp *Response) (OperationID, error) {
	var ack struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &ack); err != nil {
		return "", fmt.Errorf("failed to parse grace period acknowledgment: %w", err)
	}
	return OperationID(ack.ID), nil
}

// rawResponse is the continuation for operations that surface the full response.
func rawResponse(resp *Response) (*Response, error) {
	return resp, nil
}

// graceQuery selects grace-period mode on a write request.
func graceQuery() url.Values {
	return url.Values{"graceperiod": []string{strconv.Itoa(GraceDelay)}}
}

// do executes one request and reads the full response. Status judgment is not
// done here; it belongs to the Expect policy of each operation.
func (c *Client) do(ctx context.Context, method, urlStr string, query url.Values, header http.Header, body []byte) (*Response, error) {
	resolvedURL, err := c.resolveURL(urlStr)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "url", urlStr, "error", err)
		return nil, err
	}
	if len(query) > 0 {
		q := resolvedURL.Query()
		for key, values := range query {
			for _, value := range values {
				q.Add(key, value)
			}
		}
		resolvedURL.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, resolvedURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	c.logger.Debug("starting request",
		"method", method,
		"url", resolvedURL.String(),
		"body_length", len(body))

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "error", err)
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("received response", "status", resp.Status)

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
