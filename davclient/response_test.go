package davclient

import (
	"errors"
	"net/http"
	"testing"
)

func TestExpect(t *testing.T) {
	tests := []struct {
		name        string
		codes       []int
		status      int
		wantHandled bool
	}{
		{
			name:        "status in single-code set",
			codes:       []int{200},
			status:      200,
			wantHandled: true,
		},
		{
			name:        "status outside single-code set",
			codes:       []int{200},
			status:      500,
			wantHandled: false,
		},
		{
			name:        "grace period acknowledgment accepted",
			codes:       []int{202},
			status:      202,
			wantHandled: true,
		},
		{
			name:        "synchronous code rejected in grace period mode",
			codes:       []int{202},
			status:      201,
			wantHandled: false,
		},
		{
			name:        "second code of a pair accepted",
			codes:       []int{200, 204},
			status:      204,
			wantHandled: true,
		},
		{
			name:        "status outside pair",
			codes:       []int{200, 204},
			status:      500,
			wantHandled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{Status: tt.status, Body: []byte("payload")}
			handled := false
			result := Expect(tt.codes, func(r *Response) (string, error) {
				handled = true
				return string(r.Body), nil
			})(resp)

			if handled != tt.wantHandled {
				t.Errorf("handler invoked = %v, want %v", handled, tt.wantHandled)
			}
			if tt.wantHandled {
				if v := result.MustGet(); v != "payload" {
					t.Errorf("Expect() = %q, want %q", v, "payload")
				}
				return
			}
			var statusErr *StatusError
			if !errors.As(result.Error(), &statusErr) {
				t.Fatalf("Expect() error = %v, want StatusError", result.Error())
			}
			if statusErr.Response != resp {
				t.Error("StatusError should carry the raw response unchanged")
			}
			if statusErr.Response.Status != tt.status || string(statusErr.Response.Body) != "payload" {
				t.Errorf("carried response = %+v, want status %d body %q", statusErr.Response, tt.status, "payload")
			}
		})
	}
}

func TestExpectHandlerError(t *testing.T) {
	wantErr := errors.New("bad body")
	result := Expect([]int{200}, func(*Response) (string, error) {
		return "", wantErr
	})(&Response{Status: 200})

	if !errors.Is(result.Error(), wantErr) {
		t.Errorf("Expect() error = %v, want %v", result.Error(), wantErr)
	}
}

func TestOperationID(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    OperationID
		wantErr bool
	}{
		{
			name: "acknowledgment with id",
			body: `{"id":"anId"}`,
			want: "anId",
		},
		{
			name:    "malformed acknowledgment",
			body:    `not json`,
			wantErr: true,
		},
		{
			name: "missing id field",
			body: `{}`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := operationID(&Response{Status: http.StatusAccepted, Body: []byte(tt.body)})
			if (err != nil) != tt.wantErr {
				t.Errorf("operationID() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("operationID() = %q, want %q", got, tt.want)
			}
		})
	}
}
