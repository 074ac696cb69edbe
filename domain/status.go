package domain

import (
	"sort"
	"strings"
	"time"
)

// Status is a board column. Order defines the column sequence.
type Status struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
}

// StatusUpdate carries partial updates for a status.
type StatusUpdate struct {
	Name  *string
	Order *int
}

// StatusRole is the workflow meaning of a status.
type StatusRole int

const (
	RoleNone StatusRole = iota
	RoleInbox
	RoleActive
	RoleDone
)

func (r StatusRole) String() string {
	switch r {
	case RoleInbox:
		return "inbox"
	case RoleActive:
		return "in progress"
	case RoleDone:
		return "done"
	default:
		return "none"
	}
}

// ParseRole maps a role name as used by list tabs ("inbox", "in progress",
// "done") back to a role.
func ParseRole(s string) (StatusRole, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inbox":
		return RoleInbox, true
	case "in progress", "in-progress", "active":
		return RoleActive, true
	case "done":
		return RoleDone, true
	}
	return RoleNone, false
}

// RoleNames configures which status names carry a role.
type RoleNames struct {
	Inbox  string
	Active string
	Done   string
}

// DefaultRoleNames are the canonical status names.
var DefaultRoleNames = RoleNames{Inbox: "Inbox", Active: "In Progress", Done: "Done"}

func (n RoleNames) withDefaults() RoleNames {
	if strings.TrimSpace(n.Inbox) == "" {
		n.Inbox = DefaultRoleNames.Inbox
	}
	if strings.TrimSpace(n.Active) == "" {
		n.Active = DefaultRoleNames.Active
	}
	if strings.TrimSpace(n.Done) == "" {
		n.Done = DefaultRoleNames.Done
	}
	return n
}

// Name returns the configured status name of role.
func (n RoleNames) Name(role StatusRole) string {
	n = n.withDefaults()
	switch role {
	case RoleInbox:
		return n.Inbox
	case RoleActive:
		return n.Active
	case RoleDone:
		return n.Done
	}
	return ""
}

// DefaultStatuses returns the canonical statuses with their orders.
func DefaultStatuses(names RoleNames) []Status {
	names = names.withDefaults()
	return []Status{
		{Name: names.Inbox, Order: 1},
		{Name: names.Active, Order: 2},
		{Name: names.Done, Order: 3},
	}
}

var legacyStatusNames = map[string]StatusRole{
	"to do":       RoleInbox,
	"today":       RoleActive,
	"in progress": RoleActive,
	"done":        RoleDone,
}

// LegacyRole maps a status name from older boards to the role it replaced.
func LegacyRole(name string) (StatusRole, bool) {
	r, ok := legacyStatusNames[strings.ToLower(strings.TrimSpace(name))]
	return r, ok
}

// Roles maps status ids to roles. It is resolved once from a status list.
type Roles struct {
	inbox  string
	active string
	done   string
}

// ResolveRoles matches statuses against names case-insensitively. When two
// statuses share a name the one with the lower order wins.
func ResolveRoles(statuses []Status, names RoleNames) Roles {
	names = names.withDefaults()
	ordered := SortStatuses(statuses)
	var r Roles
	for _, s := range ordered {
		switch {
		case strings.EqualFold(s.Name, names.Inbox) && r.inbox == "":
			r.inbox = s.ID
		case strings.EqualFold(s.Name, names.Active) && r.active == "":
			r.active = s.ID
		case strings.EqualFold(s.Name, names.Done) && r.done == "":
			r.done = s.ID
		}
	}
	return r
}

// Of returns the role of statusID.
func (r Roles) Of(statusID string) StatusRole {
	if statusID == "" {
		return RoleNone
	}
	switch statusID {
	case r.inbox:
		return RoleInbox
	case r.active:
		return RoleActive
	case r.done:
		return RoleDone
	}
	return RoleNone
}

// ID returns the status id carrying role.
func (r Roles) ID(role StatusRole) (string, bool) {
	var id string
	switch role {
	case RoleInbox:
		id = r.inbox
	case RoleActive:
		id = r.active
	case RoleDone:
		id = r.done
	}
	return id, id != ""
}

// RoleIDs is the JSON view of resolved roles.
type RoleIDs struct {
	Inbox  string `json:"inbox,omitempty"`
	Active string `json:"inProgress,omitempty"`
	Done   string `json:"done,omitempty"`
}

// IDs exposes the resolved role ids.
func (r Roles) IDs() RoleIDs {
	return RoleIDs{Inbox: r.inbox, Active: r.active, Done: r.done}
}

// SortStatuses returns a copy of statuses sorted by order.
func SortStatuses(statuses []Status) []Status {
	out := append([]Status(nil), statuses...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// NextStatusOrder returns the order for a newly appended status.
func NextStatusOrder(statuses []Status) int {
	highest := 0
	for _, s := range statuses {
		if s.Order > highest {
			highest = s.Order
		}
	}
	return highest + 1
}

// FindStatus returns the status with id.
func FindStatus(statuses []Status, id string) (Status, bool) {
	for _, s := range statuses {
		if s.ID == id {
			return s, true
		}
	}
	return Status{}, false
}
