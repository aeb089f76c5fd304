package davclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/emersion/go-ical"
)

// eventToBytes converts an ical.Event to iCalendar format bytes
func eventToBytes(event *ical.Event) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText("PRODID", "-//github.com/cyp0633/libcalconf//NONSGML v1.0//EN")
	cal.Props.SetText("VERSION", "2.0")
	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	enc := ical.NewEncoder(&buf)
	if err := enc.Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// GetEvent reads one calendar object. Only a 200 completes it; the full
// response is surfaced.
func (c *Client) GetEvent(ctx context.Context, eventPath string) (*Response, error) {
	resp, err := c.do(ctx, http.MethodGet, eventPath, nil,
		http.Header{"Accept": []string{AcceptHeader}}, nil)
	if err != nil {
		return nil, err
	}
	return Expect([]int{http.StatusOK}, rawResponse)(resp).Get()
}

// CreateEvent creates a calendar object synchronously. Only a 201 completes
// it; the full response is surfaced.
func (c *Client) CreateEvent(ctx context.Context, eventPath string, event *ical.Event) (*Response, error) {
	data, err := eventToBytes(event)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPut, eventPath, nil,
		http.Header{"Content-Type": []string{ContentTypeHeader}}, data)
	if err != nil {
		return nil, err
	}
	return Expect([]int{http.StatusCreated}, rawResponse)(resp).Get()
}

// CreateEventGraced creates a calendar object under a grace period. Only a 202
// completes it; the acknowledgment's operation id is surfaced. The two create
// modes are mutually exclusive per call.
func (c *Client) CreateEventGraced(ctx context.Context, eventPath string, event *ical.Event) (OperationID, error) {
	data, err := eventToBytes(event)
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, http.MethodPut, eventPath, graceQuery(),
		http.Header{"Content-Type": []string{ContentTypeHeader}}, data)
	if err != nil {
		return "", err
	}
	return Expect([]int{http.StatusAccepted}, operationID)(resp).Get()
}

// ModifyEvent replaces a calendar object under a grace period, conditioned on
// its current etag. Only a 202 completes it.
func (c *Client) ModifyEvent(ctx context.Context, eventPath string, event *ical.Event, etag string) (OperationID, error) {
	data, err := eventToBytes(event)
	if err != nil {
		return "", err
	}
	header := http.Header{"Content-Type": []string{ContentTypeHeader}}
	if etag != "" {
		header.Set("If-Match", etag)
	}
	resp, err := c.do(ctx, http.MethodPut, eventPath, graceQuery(), header, data)
	if err != nil {
		return "", err
	}
	return Expect([]int{http.StatusAccepted}, operationID)(resp).Get()
}

// RemoveEvent deletes a calendar object under a grace period, conditioned on
// its current etag. Only a 202 completes it.
func (c *Client) RemoveEvent(ctx context.Context, eventPath string, etag string) (OperationID, error) {
	header := http.Header{"Accept": []string{AcceptHeader}}
	if etag != "" {
		header.Set("If-Match", etag)
	}
	resp, err := c.do(ctx, http.MethodDelete, eventPath, graceQuery(), header, nil)
	if err != nil {
		return "", err
	}
	return Expect([]int{http.StatusAccepted}, operationID)(resp).Get()
}

// ChangeParticipation updates the participation status of an attendee. Always
// synchronous: a 200 or a 204 completes it, and a 204 may carry no body.
func (c *Client) ChangeParticipation(ctx context.Context, eventPath string, event *ical.Event) (*Response, error) {
	data, err := eventToBytes(event)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPut, eventPath, nil,
		http.Header{"Content-Type": []string{ContentTypeHeader}}, data)
	if err != nil {
		return nil, err
	}
	return Expect([]int{http.StatusOK, http.StatusNoContent}, rawResponse)(resp).Get()
}
