package davclient

import "context"

// User is a directory record of one platform user.
type User struct {
	ID          string
	Email       string
	DisplayName string
}

// UserDirectory resolves user records for display. Implementations typically
// call the platform's user API; see RESTUserDirectory.
type UserDirectory interface {
	User(ctx context.Context, userID string) (User, error)
}

// Delegation pairs a user with a chosen sharing right before the grant is
// committed into the ledger. It is the editable projection of a ShareeEntry.
type Delegation struct {
	User  User
	Right ShareeRight
}

// DelegationEditor is the working set of in-progress sharing-grant edits:
// added or overridden delegation lines, and the ids of removed users. Edits
// stay here until a submit folds them into the ledger.
type DelegationEditor struct {
	newCalendar bool
	lines       []Delegation
	removed     map[string]struct{}
}

// NewDelegationEditor creates an empty editor. newCalendar marks a calendar
// that has not been created yet; editing delegations on one has no commit
// path and is rejected.
func NewDelegationEditor(newCalendar bool) *DelegationEditor {
	return &DelegationEditor{
		newCalendar: newCalendar,
		removed:     make(map[string]struct{}),
	}
}

// AddUserGroup merges users into the working delegation list with the given
// right. A user already listed has their right overwritten, last write wins;
// everyone else is appended. Returns the updated lines, or
// ErrUnsupportedOperation when the calendar does not exist yet.
func (e *DelegationEditor) AddUserGroup(users []User, right ShareeRight) ([]Delegation, error) {
	if e.newCalendar {
		return nil, ErrUnsupportedOperation
	}
	for _, user := range users {
		existing := false
		for i, line := range e.lines {
			if line.User.ID == user.ID {
				e.lines[i].Right = right
				existing = true
				break
			}
		}
		if !existing {
			e.lines = append(e.lines, Delegation{User: user, Right: right})
		}
	}
	return e.Lines(), nil
}

// RemoveUserGroup drops a line from the working list and records its user id
// in the removed set. Removing the same line twice has no additional effect.
func (e *DelegationEditor) RemoveUserGroup(line Delegation) []Delegation {
	e.removed[line.User.ID] = struct{}{}
	for i, l := range e.lines {
		if l.User.ID == line.User.ID {
			e.lines = append(e.lines[:i], e.lines[i+1:]...)
			break
		}
	}
	return e.Lines()
}

// RemovedUserIDs returns the ids of every user removed so far.
func (e *DelegationEditor) RemovedUserIDs() []string {
	ids := make([]string, 0, len(e.removed))
	for id := range e.removed {
		ids = append(ids, id)
	}
	return ids
}

// Lines returns a copy of the working delegation list.
func (e *DelegationEditor) Lines() []Delegation {
	out := make([]Delegation, len(e.lines))
	copy(out, e.lines)
	return out
}
