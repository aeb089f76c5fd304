package davclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"testing"
)

const sessionRights = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:cs="http://calendarserver.org/ns/">
  <d:response>
    <d:href>/calendars/homeId/calId</d:href>
    <d:propstat>
      <d:prop>
        <cs:invite>
          <cs:user>
            <cs:principal>principals/users/user1</cs:principal>
            <d:href>mailto:user1@example.com</d:href>
            <cs:access><cs:read/></cs:access>
          </cs:user>
        </cs:invite>
        <d:acl/>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
</d:multistatus>`

var sessionDirectory = staticDirectory{
	"user1": {ID: "user1", Email: "user1@example.com", DisplayName: "User One"},
	"user2": {ID: "user2", Email: "user2@example.com", DisplayName: "User Two"},
}

// openEditSession loads a session over canned calendar and rights responses,
// then clears the transport so tests observe only the submit's requests.
func openEditSession(t *testing.T, transport *mockTransport, client *Client, rights string) *Session {
	t.Helper()
	transport.reset(func(req recordedRequest) *http.Response {
		switch req.Method {
		case http.MethodGet:
			header := make(http.Header)
			header.Set("Etag", `"etag-1"`)
			return response(200, `{"dav:name":"Holidays","apple:color":"#ff0000"}`, header)
		case "PROPFIND":
			return response(200, rights, nil)
		default:
			return response(500, "unexpected request during load", nil)
		}
	})
	session, err := client.EditCalendarSession(context.Background(), "homeId", "calId", sessionDirectory)
	if err != nil {
		t.Fatalf("EditCalendarSession() error = %v", err)
	}
	return session
}

// acceptWrites answers every write the way the backend does on success.
func acceptWrites(req recordedRequest) *http.Response {
	switch req.Method {
	case http.MethodPut, http.MethodDelete:
		return response(202, `{"id":"anId"}`, nil)
	case http.MethodPost:
		return response(200, "ok", nil)
	default:
		return response(500, "unexpected", nil)
	}
}

func TestEditSessionPopulatesDelegations(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)
	session := openEditSession(t, transport, client, sessionRights)

	if session.IsNew() {
		t.Error("edit session should not be marked new")
	}
	if session.Calendar.Name != "Holidays" || session.Calendar.ETag != `"etag-1"` {
		t.Errorf("calendar = %+v, want loaded name and etag", session.Calendar)
	}
	if len(session.Delegations) != 1 {
		t.Fatalf("got %d delegations, want 1", len(session.Delegations))
	}
	line := session.Delegations[0]
	if line.User.DisplayName != "User One" || line.Right != ShareeRightRead {
		t.Errorf("delegation = %+v, want User One with read right", line)
	}
}

func TestEditSessionLookupFailure(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)
	transport.reset(func(req recordedRequest) *http.Response {
		if req.Method == "PROPFIND" {
			return response(200, sessionRights, nil)
		}
		return response(200, `{"dav:name":"Holidays"}`, nil)
	})

	_, err := client.EditCalendarSession(context.Background(), "homeId", "calId", staticDirectory{})
	if err == nil || !strings.Contains(err.Error(), "user1") {
		t.Errorf("EditCalendarSession() error = %v, want failed sharee resolution for user1", err)
	}
}

func TestSubmitNoChanges(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)
	session := openEditSession(t, transport, client, sessionRights)

	transport.reset(acceptWrites)
	if err := session.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := len(transport.recorded()); got != 0 {
		t.Errorf("an edit with zero net effect issued %d requests, want 0", got)
	}
	if !session.Saved() {
		t.Error("session should transition to saved")
	}
}

func TestSubmitPublicRightOnly(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)
	session := openEditSession(t, transport, client, sessionRights)

	session.PublicSelection = PublicRightRead

	transport.reset(acceptWrites)
	if err := session.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	requests := transport.recorded()
	if len(requests) != 1 {
		t.Fatalf("got %d requests, want exactly 1", len(requests))
	}
	req := requests[0]
	if req.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", req.Method)
	}
	if req.Body != `{"public_right":"read"}` {
		t.Errorf("body = %q, want %q", req.Body, `{"public_right":"read"}`)
	}
	if !session.Saved() {
		t.Error("session should transition to saved")
	}
}

func TestSubmitPublicRightRevoked(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)
	// loaded with a public read grant
	session := openEditSession(t, transport, client, rightsMultistatus)

	session.PublicSelection = PublicRightNone

	transport.reset(acceptWrites)
	if err := session.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	// NONE is never pushed as an explicit public-right update
	if got := len(transport.recorded()); got != 0 {
		t.Errorf("revoking the public right issued %d requests, want 0", got)
	}
	if !session.Saved() {
		t.Error("session should transition to saved")
	}
}

func TestSubmitEmptyName(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)
	session := openEditSession(t, transport, client, sessionRights)

	session.Calendar.Name = ""

	transport.reset(acceptWrites)
	err := session.Submit(context.Background())
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Submit() error = %v, want ValidationError", err)
	}
	if got := len(transport.recorded()); got != 0 {
		t.Errorf("an invalid submit issued %d requests, want 0", got)
	}
	if session.Saved() {
		t.Error("session must not transition to saved")
	}
}

func TestSubmitContentOnly(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)
	session := openEditSession(t, transport, client, sessionRights)

	session.Calendar.Name = "Renamed"

	transport.reset(acceptWrites)
	if err := session.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	requests := transport.recorded()
	if len(requests) != 1 {
		t.Fatalf("got %d requests, want exactly 1", len(requests))
	}
	req := requests[0]
	if req.Method != http.MethodPut {
		t.Errorf("method = %s, want PUT", req.Method)
	}
	if req.Header.Get("If-Match") != `"etag-1"` {
		t.Errorf("If-Match = %q, want the loaded etag", req.Header.Get("If-Match"))
	}
	if !req.Query.Has("graceperiod") {
		t.Error("content modification must select grace period mode")
	}
}

func TestSubmitRightsOnly(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)
	session := openEditSession(t, transport, client, sessionRights)

	if err := session.AddUserGroup([]User{sessionDirectory["user2"]}, ShareeRightReadWrite); err != nil {
		t.Fatalf("AddUserGroup() error = %v", err)
	}

	transport.reset(acceptWrites)
	if err := session.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	requests := transport.recorded()
	if len(requests) != 1 {
		t.Fatalf("got %d requests, want exactly 1", len(requests))
	}
	var body struct {
		Share shareUpdate `json:"share"`
	}
	if err := json.Unmarshal([]byte(requests[0].Body), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if len(body.Share.Set) != 1 || body.Share.Set[0].Href != "mailto:user2@example.com" || !body.Share.Set[0].ReadWrite {
		t.Errorf("set = %+v, want one read-write grant for user2", body.Share.Set)
	}
	if len(body.Share.Remove) != 0 {
		t.Errorf("remove = %+v, want none", body.Share.Remove)
	}
}

func TestSubmitRemovedSharee(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)
	session := openEditSession(t, transport, client, sessionRights)

	session.RemoveUserGroup(session.Delegations[0])

	transport.reset(acceptWrites)
	if err := session.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	requests := transport.recorded()
	if len(requests) != 1 {
		t.Fatalf("got %d requests, want exactly 1", len(requests))
	}
	var body struct {
		Share shareUpdate `json:"share"`
	}
	if err := json.Unmarshal([]byte(requests[0].Body), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if len(body.Share.Remove) != 1 || body.Share.Remove[0].Href != "mailto:user1@example.com" {
		t.Errorf("remove = %+v, want one revocation for user1", body.Share.Remove)
	}
}

func TestSubmitAllDiffs(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)
	session := openEditSession(t, transport, client, sessionRights)

	session.Calendar.Name = "Renamed"
	session.PublicSelection = PublicRightFreeBusy
	if err := session.AddUserGroup([]User{sessionDirectory["user2"]}, ShareeRightAdmin); err != nil {
		t.Fatalf("AddUserGroup() error = %v", err)
	}

	transport.reset(acceptWrites)
	if err := session.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	requests := transport.recorded()
	if len(requests) != 3 {
		t.Fatalf("got %d requests, want exactly 3", len(requests))
	}
	methods := map[string]int{}
	for _, req := range requests {
		methods[req.Method]++
	}
	if methods[http.MethodPut] != 1 || methods[http.MethodPost] != 2 {
		t.Errorf("methods = %v, want one PUT and two POSTs", methods)
	}
	if !session.Saved() {
		t.Error("session should transition to saved after the join")
	}
}

func TestSubmitFailureKeepsSession(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)
	session := openEditSession(t, transport, client, sessionRights)

	session.Calendar.Name = "Renamed"

	transport.reset(func(recordedRequest) *http.Response {
		return response(http.StatusPreconditionFailed, "stale", nil)
	})
	err := session.Submit(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Response.Status != http.StatusPreconditionFailed {
		t.Fatalf("Submit() error = %v, want StatusError carrying 412", err)
	}
	if session.Saved() {
		t.Error("a failed submit must leave the session unsaved")
	}
}

func TestNewCalendarSession(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)

	session := client.NewCalendarSession("homeId", sessionDirectory)

	if !session.IsNew() {
		t.Error("create session should be marked new")
	}
	if !strings.HasPrefix(session.Calendar.Href, "/calendars/homeId/") || !strings.HasSuffix(session.Calendar.Href, ".json") {
		t.Errorf("href = %q, want it under /calendars/homeId/", session.Calendar.Href)
	}
	if ok, _ := regexp.MatchString(`^#[0-9a-f]{6}$`, session.Calendar.Color); !ok {
		t.Errorf("color = %q, want a generated #rrggbb value", session.Calendar.Color)
	}

	err := session.AddUserGroup([]User{sessionDirectory["user2"]}, ShareeRightRead)
	if !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("AddUserGroup() on a new calendar error = %v, want ErrUnsupportedOperation", err)
	}
}

func TestSubmitCreate(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)
	session := client.NewCalendarSession("homeId", sessionDirectory)
	session.Calendar.Name = "Fresh"

	transport.reset(func(recordedRequest) *http.Response {
		return response(201, "created", nil)
	})
	if err := session.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	requests := transport.recorded()
	if len(requests) != 1 {
		t.Fatalf("got %d requests, want exactly 1", len(requests))
	}
	if requests[0].Method != http.MethodPut {
		t.Errorf("method = %s, want PUT", requests[0].Method)
	}
	if !session.Saved() {
		t.Error("session should transition to saved")
	}
}

func TestSubmitCreateEmptyName(t *testing.T) {
	transport := &mockTransport{}
	client := newTestClient(transport)
	session := client.NewCalendarSession("homeId", sessionDirectory)

	transport.reset(acceptWrites)
	err := session.Submit(context.Background())
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Submit() error = %v, want ValidationError", err)
	}
	if got := len(transport.recorded()); got != 0 {
		t.Errorf("an invalid create issued %d requests, want 0", got)
	}
}
