package davclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
)

// RESTUserDirectory resolves users against the platform's user API,
// GET /api/users/{id}.
type RESTUserDirectory struct {
	Client *Client
}

type userJSON struct {
	ID             string `json:"_id"`
	Firstname      string `json:"firstname"`
	Lastname       string `json:"lastname"`
	PreferredEmail string `json:"preferredEmail"`
}

// displayNameOf prefers the full name and falls back to the email address.
func displayNameOf(u userJSON) string {
	name := strings.TrimSpace(u.Firstname + " " + u.Lastname)
	if name == "" {
		return u.PreferredEmail
	}
	return name
}

func (d *RESTUserDirectory) User(ctx context.Context, userID string) (User, error) {
	resp, err := d.Client.do(ctx, http.MethodGet, path.Join("/api/users", userID), nil, nil, nil)
	if err != nil {
		return User{}, err
	}
	return Expect([]int{http.StatusOK}, func(resp *Response) (User, error) {
		var body userJSON
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return User{}, fmt.Errorf("failed to parse user %q: %w", userID, err)
		}
		return User{
			ID:          body.ID,
			Email:       body.PreferredEmail,
			DisplayName: displayNameOf(body),
		}, nil
	})(resp).Get()
}
