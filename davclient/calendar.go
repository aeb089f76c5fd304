package davclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"

	"github.com/cyp0633/libcalconf/internal/xml/sharing"
)

// Calendar is one calendar resource of a calendar home.
type Calendar struct {
	HomeID string
	ID     string
	// Href is assigned once at creation and immutable thereafter.
	Href        string
	Name        string
	Color       string
	Description string
	// ETag is the concurrency token set by the backend after each
	// successful write; it conditions every modify and remove.
	ETag string
}

// calendarJSON is the proxy's wire representation of calendar metadata.
type calendarJSON struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"dav:name"`
	Color       string `json:"apple:color,omitempty"`
	Description string `json:"caldav:description,omitempty"`
}

func calendarPath(homeID, calendarID string) string {
	return path.Join("/calendars", homeID, calendarID) + ".json"
}

// BuildHref returns the immutable address of a calendar within its home.
func BuildHref(homeID, calendarID string) string {
	return calendarPath(homeID, calendarID)
}

func (cal *Calendar) body() ([]byte, error) {
	data, err := json.Marshal(calendarJSON{
		ID:          cal.ID,
		Name:        cal.Name,
		Color:       cal.Color,
		Description: cal.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return data, nil
}

// GetCalendar reads the metadata of one calendar. Only a 200 completes it.
func (c *Client) GetCalendar(ctx context.Context, homeID, calendarID string) (*Calendar, error) {
	resp, err := c.do(ctx, http.MethodGet, calendarPath(homeID, calendarID), nil,
		http.Header{"Accept": []string{AcceptHeader}}, nil)
	if err != nil {
		return nil, err
	}
	return Expect([]int{http.StatusOK}, func(resp *Response) (*Calendar, error) {
		var body calendarJSON
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return nil, fmt.Errorf("failed to parse calendar %s/%s: %w", homeID, calendarID, err)
		}
		return &Calendar{
			HomeID:      homeID,
			ID:          calendarID,
			Href:        calendarPath(homeID, calendarID),
			Name:        body.Name,
			Color:       body.Color,
			Description: body.Description,
			ETag:        resp.Header.Get("Etag"),
		}, nil
	})(resp).Get()
}

// CreateCalendar creates the calendar synchronously. Only a 201 completes it;
// the full response is surfaced.
func (c *Client) CreateCalendar(ctx context.Context, cal *Calendar) (*Response, error) {
	data, err := cal.body()
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPut, calendarPath(cal.HomeID, cal.ID), nil, nil, data)
	if err != nil {
		return nil, err
	}
	return Expect([]int{http.StatusCreated}, rawResponse)(resp).Get()
}

// CreateCalendarGraced creates the calendar under a grace period. Only a 202
// completes it; the acknowledgment's operation id is surfaced.
func (c *Client) CreateCalendarGraced(ctx context.Context, cal *Calendar) (OperationID, error) {
	data, err := cal.body()
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, http.MethodPut, calendarPath(cal.HomeID, cal.ID), graceQuery(), nil, data)
	if err != nil {
		return "", err
	}
	return Expect([]int{http.StatusAccepted}, operationID)(resp).Get()
}

// ModifyCalendar replaces the calendar's metadata under a grace period,
// conditioned on its current etag. Only a 202 completes it.
func (c *Client) ModifyCalendar(ctx context.Context, cal *Calendar) (OperationID, error) {
	data, err := cal.body()
	if err != nil {
		return "", err
	}
	header := http.Header{}
	if cal.ETag != "" {
		header.Set("If-Match", cal.ETag)
	}
	resp, err := c.do(ctx, http.MethodPut, calendarPath(cal.HomeID, cal.ID), graceQuery(), header, data)
	if err != nil {
		return "", err
	}
	return Expect([]int{http.StatusAccepted}, operationID)(resp).Get()
}

// RemoveCalendar deletes the calendar under a grace period, conditioned on its
// current etag. Only a 202 completes it.
func (c *Client) RemoveCalendar(ctx context.Context, cal *Calendar) (OperationID, error) {
	header := http.Header{"Accept": []string{AcceptHeader}}
	if cal.ETag != "" {
		header.Set("If-Match", cal.ETag)
	}
	resp, err := c.do(ctx, http.MethodDelete, calendarPath(cal.HomeID, cal.ID), graceQuery(), header, nil)
	if err != nil {
		return "", err
	}
	return Expect([]int{http.StatusAccepted}, operationID)(resp).Get()
}

func shareeRightFromAccess(access string) ShareeRight {
	switch access {
	case "read":
		return ShareeRightRead
	case "read-write":
		return ShareeRightReadWrite
	case "admin":
		return ShareeRightAdmin
	case "free-busy":
		return ShareeRightFreeBusy
	default:
		return ShareeRightNone
	}
}

// GetRight fetches the sharing invite and access control list of a calendar
// and assembles them into a ledger. Only a 200 completes it.
func (c *Client) GetRight(ctx context.Context, homeID, calendarID string) (*Ledger, error) {
	resp, err := c.do(ctx, "PROPFIND", path.Join("/calendars", homeID, calendarID), nil,
		http.Header{
			"Content-Type": []string{"application/xml; charset=utf-8"},
			"Depth":        []string{"0"},
		}, sharing.RequestBody())
	if err != nil {
		return nil, err
	}
	return Expect([]int{http.StatusOK}, func(resp *Response) (*Ledger, error) {
		rights, err := sharing.ParseRights(resp.Body).Get()
		if err != nil {
			return nil, fmt.Errorf("failed to parse rights of %s/%s: %w", homeID, calendarID, err)
		}
		ledger := NewLedger()
		ledger.SetPublicRight(PublicRight(rights.Public))
		for _, sharee := range rights.Sharees {
			ledger.UpdateSharee(path.Base(sharee.Principal), sharee.Email(), shareeRightFromAccess(sharee.Access))
		}
		return ledger, nil
	})(resp).Get()
}

// ModifyShares pushes the delta between the current rights and the baseline
// snapshot as a single share modification. Only a 200 completes it; the body
// is an opaque server acknowledgment.
func (c *Client) ModifyShares(ctx context.Context, homeID, calendarID string, rights, previous *Ledger) (*Response, error) {
	data, err := json.Marshal(struct {
		Share shareUpdate `json:"share"`
	}{Share: rights.shareDelta(previous)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode share modification: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, calendarPath(homeID, calendarID), nil,
		http.Header{"Content-Type": []string{"application/json"}}, data)
	if err != nil {
		return nil, err
	}
	return Expect([]int{http.StatusOK}, rawResponse)(resp).Get()
}

// ModifyPublicRights sets the public visibility of a calendar. Callers only
// invoke it for read, read-write and free-busy; revoking visibility flows
// through ModifyShares instead. Only a 200 completes it.
func (c *Client) ModifyPublicRights(ctx context.Context, homeID, calendarID string, right PublicRight) (*Response, error) {
	data, err := json.Marshal(struct {
		PublicRight PublicRight `json:"public_right"`
	}{PublicRight: right})
	if err != nil {
		return nil, fmt.Errorf("failed to encode public right: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, calendarPath(homeID, calendarID), nil,
		http.Header{"Content-Type": []string{"application/json"}}, data)
	if err != nil {
		return nil, err
	}
	return Expect([]int{http.StatusOK}, rawResponse)(resp).Get()
}
