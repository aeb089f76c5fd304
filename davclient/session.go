package davclient

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// modifyCompareKeys is the whitelist of metadata fields examined by the
// content diff. Rights never participate here; they have their own diff.
var modifyCompareKeys = []func(*Calendar) string{
	func(cal *Calendar) string { return cal.Name },
	func(cal *Calendar) string { return cal.Color },
	func(cal *Calendar) string { return cal.Description },
}

func hasModifications(old, current *Calendar) bool {
	for _, key := range modifyCompareKeys {
		if key(old) != key(current) {
			return true
		}
	}
	return false
}

// Session is one calendar configuration editing session. It exclusively owns
// the live calendar, its rights ledger and the delegation editor, plus the
// baseline snapshots the submit diffs against. A session is not safe for
// concurrent use.
type Session struct {
	client    *Client
	directory UserDirectory

	HomeID string
	// Calendar is the live resource; edit its fields directly.
	Calendar *Calendar
	// Delegations is the current working list of delegation lines.
	Delegations []Delegation
	// PublicSelection is the chosen public visibility.
	PublicSelection PublicRight

	editor         *DelegationEditor
	baseline       Calendar
	ledger         *Ledger
	baselineLedger *Ledger
	loadedPublic   PublicRight
	newCalendar    bool
	saved          bool
}

func randomColor() string {
	return fmt.Sprintf("#%06x", rand.IntN(1<<24))
}

// NewCalendarSession starts a session for a calendar that does not exist yet:
// a fresh identifier and href, a random display color, an empty ledger and an
// empty delegation editor.
func (c *Client) NewCalendarSession(homeID string, directory UserDirectory) *Session {
	id := uuid.New().String()
	cal := &Calendar{
		HomeID: homeID,
		ID:     id,
		Href:   BuildHref(homeID, id),
		Color:  randomColor(),
	}
	ledger := NewLedger()
	return &Session{
		client:         c,
		directory:      directory,
		HomeID:         homeID,
		Calendar:       cal,
		editor:         NewDelegationEditor(true),
		ledger:         ledger,
		baselineLedger: ledger.Clone(),
		newCalendar:    true,
	}
}

// EditCalendarSession starts a session on an existing calendar: loads its
// metadata and rights, snapshots both as the diff baseline, and resolves
// every sharee's user record to populate the delegation lines. The lookups
// run concurrently, one per sharee, and all are joined before the session is
// returned.
func (c *Client) EditCalendarSession(ctx context.Context, homeID, calendarID string, directory UserDirectory) (*Session, error) {
	cal, err := c.GetCalendar(ctx, homeID, calendarID)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar %s/%s: %w", homeID, calendarID, err)
	}
	ledger, err := c.GetRight(ctx, homeID, calendarID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rights of %s/%s: %w", homeID, calendarID, err)
	}

	s := &Session{
		client:          c,
		directory:       directory,
		HomeID:          homeID,
		Calendar:        cal,
		PublicSelection: ledger.PublicRight(),
		editor:          NewDelegationEditor(false),
		baseline:        *cal,
		ledger:          ledger,
		baselineLedger:  ledger.Clone(),
		loadedPublic:    ledger.PublicRight(),
	}

	entries := ledger.ShareeRights()
	users := make([]User, len(entries))
	errs := make([]error, len(entries))
	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			users[i], errs[i] = directory.User(ctx, entry.UserID)
		}()
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("failed to resolve sharee %q: %w", entries[i].UserID, err)
		}
	}
	for i, entry := range entries {
		s.Delegations, _ = s.editor.AddUserGroup([]User{users[i]}, entry.Right)
	}
	return s, nil
}

// IsNew reports whether the session creates a calendar rather than editing one.
func (s *Session) IsNew() bool {
	return s.newCalendar
}

// Saved reports whether the session reached its terminal state.
func (s *Session) Saved() bool {
	return s.saved
}

// AddUserGroup stages a delegation for each user with the selected right.
// Staging on a not-yet-created calendar returns ErrUnsupportedOperation.
func (s *Session) AddUserGroup(users []User, right ShareeRight) error {
	lines, err := s.editor.AddUserGroup(users, right)
	if err != nil {
		return err
	}
	s.Delegations = lines
	return nil
}

// RemoveUserGroup unstages a delegation line; the user's grant is revoked on
// the next submit.
func (s *Session) RemoveUserGroup(line Delegation) {
	s.Delegations = s.editor.RemoveUserGroup(line)
}

func (s *Session) validate() error {
	if len(s.Calendar.Name) < 1 {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return nil
}

// Submit persists whatever changed since the session started. An invalid name
// aborts before any request. A create session issues exactly one create
// request. An edit session folds the staged delegation edits into the ledger,
// computes the content, rights and public-right diffs, and issues one request
// per true diff, all concurrently; an edit with zero net effect issues zero
// requests. The session transitions to saved only once every issued request
// succeeded. Requests that already succeeded are not rolled back on failure.
func (s *Session) Submit(ctx context.Context) error {
	if err := s.validate(); err != nil {
		return err
	}
	if s.newCalendar {
		return s.submitCreate(ctx)
	}
	return s.submitEdit(ctx)
}

func (s *Session) submitCreate(ctx context.Context) error {
	if _, err := s.client.CreateCalendar(ctx, s.Calendar); err != nil {
		return fmt.Errorf("failed to create calendar %q: %w", s.Calendar.Name, err)
	}
	s.client.logger.Info("calendar created", "home_id", s.HomeID, "calendar_id", s.Calendar.ID)
	s.saved = true
	return nil
}

func (s *Session) submitEdit(ctx context.Context) error {
	// Fold staged edits into the live ledger before diffing.
	for _, userID := range s.editor.RemovedUserIDs() {
		s.ledger.RemoveSharee(userID)
	}
	for _, line := range s.editor.Lines() {
		s.ledger.UpdateSharee(line.User.ID, line.User.Email, line.Right)
	}

	rightsChanged := !s.ledger.Equal(s.baselineLedger)
	contentChanged := hasModifications(&s.baseline, s.Calendar)
	publicRightChanged := s.PublicSelection != s.loadedPublic

	if !rightsChanged && !contentChanged && !publicRightChanged {
		s.saved = true
		return nil
	}

	var actions []func(context.Context) error
	if contentChanged {
		actions = append(actions, func(ctx context.Context) error {
			_, err := s.client.ModifyCalendar(ctx, s.Calendar)
			return err
		})
	}
	if rightsChanged {
		actions = append(actions, func(ctx context.Context) error {
			_, err := s.client.ModifyShares(ctx, s.HomeID, s.Calendar.ID, s.ledger, s.baselineLedger)
			return err
		})
	}
	if publicRightChanged {
		// NONE is never pushed as an explicit update; revoking visibility
		// flows through the shares modification path.
		switch s.PublicSelection {
		case PublicRightRead, PublicRightReadWrite, PublicRightFreeBusy:
			actions = append(actions, func(ctx context.Context) error {
				_, err := s.client.ModifyPublicRights(ctx, s.HomeID, s.Calendar.ID, s.PublicSelection)
				return err
			})
		}
	}

	errs := make([]error, len(actions))
	var wg sync.WaitGroup
	for i, action := range actions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = action(ctx)
		}()
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return fmt.Errorf("failed to save calendar configuration: %w", err)
		}
	}

	s.client.logger.Info("calendar modified", "home_id", s.HomeID, "calendar_id", s.Calendar.ID)
	s.baseline = *s.Calendar
	s.baselineLedger = s.ledger.Clone()
	s.loadedPublic = s.PublicSelection
	s.saved = true
	return nil
}
