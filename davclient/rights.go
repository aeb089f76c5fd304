package davclient

// PublicRight is the visibility level granted to every user of the platform,
// independent of per-sharee grants.
type PublicRight string

const (
	PublicRightNone      PublicRight = ""
	PublicRightRead      PublicRight = "read"
	PublicRightReadWrite PublicRight = "read-write"
	PublicRightFreeBusy  PublicRight = "free-busy"
)

// ShareeRight is the access level granted to one sharee.
type ShareeRight int

const (
	ShareeRightNone ShareeRight = iota
	ShareeRightRead
	ShareeRightReadWrite
	ShareeRightAdmin
	ShareeRightFreeBusy
)

func (r ShareeRight) String() string {
	switch r {
	case ShareeRightRead:
		return "read"
	case ShareeRightReadWrite:
		return "read-write"
	case ShareeRightAdmin:
		return "admin"
	case ShareeRightFreeBusy:
		return "free-busy"
	default:
		return "none"
	}
}

// ShareeEntry is one sharing grant of a ledger: a user and the right granted
// to them.
type ShareeEntry struct {
	UserID string
	Email  string
	Right  ShareeRight
}

// Ledger is the authoritative in-memory record of a calendar's public right
// and all its sharee rights. At most one entry exists per user id; entries
// keep insertion order, which carries no meaning for equality.
type Ledger struct {
	public  PublicRight
	sharees []ShareeEntry
}

// NewLedger creates an empty ledger: no public right, no sharees.
func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) PublicRight() PublicRight {
	return l.public
}

func (l *Ledger) SetPublicRight(right PublicRight) {
	l.public = right
}

// ShareeRights returns a copy of all sharing grants.
func (l *Ledger) ShareeRights() []ShareeEntry {
	out := make([]ShareeEntry, len(l.sharees))
	copy(out, l.sharees)
	return out
}

// UpdateSharee upserts the grant for a user: an existing entry is overwritten,
// otherwise a new one is appended. Writing the value already present is a no-op.
func (l *Ledger) UpdateSharee(userID, email string, right ShareeRight) {
	for i, entry := range l.sharees {
		if entry.UserID == userID {
			l.sharees[i].Email = email
			l.sharees[i].Right = right
			return
		}
	}
	l.sharees = append(l.sharees, ShareeEntry{UserID: userID, Email: email, Right: right})
}

// RemoveSharee removes the grant for a user if present. Removing an absent
// user is a no-op.
func (l *Ledger) RemoveSharee(userID string) {
	for i, entry := range l.sharees {
		if entry.UserID == userID {
			l.sharees = append(l.sharees[:i], l.sharees[i+1:]...)
			return
		}
	}
}

// Clone returns a deep copy independent of the original, used to snapshot a
// baseline before edits.
func (l *Ledger) Clone() *Ledger {
	clone := &Ledger{public: l.public, sharees: make([]ShareeEntry, len(l.sharees))}
	copy(clone.sharees, l.sharees)
	return clone
}

// Equal reports structural equality: same public right and same set of
// (user id, right) pairs, regardless of entry order.
func (l *Ledger) Equal(other *Ledger) bool {
	if other == nil || l.public != other.public || len(l.sharees) != len(other.sharees) {
		return false
	}
	for _, entry := range l.sharees {
		found := false
		for _, o := range other.sharees {
			if o.UserID == entry.UserID {
				found = o.Right == entry.Right
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// shareGrant is one instruction of a Sabre share modification body.
type shareGrant struct {
	Href           string `json:"dav:href"`
	Read           bool   `json:"dav:read,omitempty"`
	ReadWrite      bool   `json:"dav:read-write,omitempty"`
	Administration bool   `json:"dav:administration,omitempty"`
	FreeBusy       bool   `json:"dav:freebusy,omitempty"`
}

type shareUpdate struct {
	Set    []shareGrant `json:"set"`
	Remove []shareGrant `json:"remove"`
}

func grantFor(entry ShareeEntry) shareGrant {
	grant := shareGrant{Href: "mailto:" + entry.Email}
	switch entry.Right {
	case ShareeRightRead:
		grant.Read = true
	case ShareeRightReadWrite:
		grant.ReadWrite = true
	case ShareeRightAdmin:
		grant.Administration = true
	case ShareeRightFreeBusy:
		grant.FreeBusy = true
	}
	return grant
}

// shareDelta computes the set/remove instructions turning old into l: grants
// new or changed since old go to set, grants gone since old go to remove.
func (l *Ledger) shareDelta(old *Ledger) shareUpdate {
	update := shareUpdate{Set: []shareGrant{}, Remove: []shareGrant{}}
	for _, entry := range l.sharees {
		changed := true
		for _, o := range old.sharees {
			if o.UserID == entry.UserID {
				changed = o.Right != entry.Right
				break
			}
		}
		if changed {
			update.Set = append(update.Set, grantFor(entry))
		}
	}
	for _, o := range old.sharees {
		gone := true
		for _, entry := range l.sharees {
			if entry.UserID == o.UserID {
				gone = false
				break
			}
		}
		if gone {
			update.Remove = append(update.Remove, shareGrant{Href: "mailto:" + o.Email})
		}
	}
	return update
}
