package davclient

import (
	"errors"
	"fmt"
)

// ErrUnsupportedOperation reports an edit that has no defined commit path,
// such as editing sharing grants on a calendar that does not exist yet.
var ErrUnsupportedOperation = errors.New("operation not supported on a calendar that does not exist yet")

// ValidationError reports a local precondition violation. It is raised before
// any request is issued and never reaches the network.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
