package domain

import (
	"sort"
	"time"
)

// DateRange is an inclusive range of calendar days. Empty bounds leave the
// range open.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Normalize swaps reversed bounds.
func (r DateRange) Normalize() DateRange {
	if r.From != "" && r.To != "" && r.From > r.To {
		r.From, r.To = r.To, r.From
	}
	return r
}

func (r DateRange) bounds() (time.Time, time.Time, bool) {
	if r.From == "" || r.To == "" {
		return time.Time{}, time.Time{}, false
	}
	start, err := time.Parse(time.DateOnly, r.From)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.DateOnly, r.To)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end.Add(24*time.Hour - time.Nanosecond), true
}

// DefaultRange is the last seven days ending on today.
func DefaultRange(now time.Time) DateRange {
	today := now.UTC()
	return DateRange{From: DateOf(today.AddDate(0, 0, -6)), To: DateOf(today)}
}

// ViewTimestamp is the moment a task is filed under in list views: when it
// started for In Progress, when it completed for Done, when it was created
// otherwise.
func ViewTimestamp(t Task, role StatusRole) time.Time {
	switch role {
	case RoleActive:
		if t.StartedAt != nil {
			return *t.StartedAt
		}
	case RoleDone:
		if t.CompletedAt != nil {
			return *t.CompletedAt
		}
		return t.UpdatedAt
	}
	return t.CreatedAt
}

// InRange reports whether t belongs in the range. Inbox tasks are always in
// range, as is everything when the range is open.
func InRange(t Task, role StatusRole, r DateRange) bool {
	if role == RoleInbox {
		return true
	}
	start, end, ok := r.Normalize().bounds()
	if !ok {
		return true
	}
	ts := ViewTimestamp(t, role)
	return !ts.Before(start) && !ts.After(end)
}

// FilterRange returns the tasks within r.
func FilterRange(tasks []Task, roles Roles, r DateRange) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if InRange(t, roles.Of(t.StatusID), r) {
			out = append(out, t)
		}
	}
	return out
}

// RoleCounts is the number of tasks per list tab.
type RoleCounts struct {
	Inbox  int `json:"inbox"`
	Active int `json:"inProgress"`
	Done   int `json:"done"`
}

// CountByRole counts tasks within r per role. Tasks in role-less statuses
// are not counted.
func CountByRole(tasks []Task, roles Roles, r DateRange) RoleCounts {
	var c RoleCounts
	for _, t := range tasks {
		role := roles.Of(t.StatusID)
		if !InRange(t, role, r) {
			continue
		}
		switch role {
		case RoleInbox:
			c.Inbox++
		case RoleActive:
			c.Active++
		case RoleDone:
			c.Done++
		}
	}
	return c
}

// SortForList orders tasks newest first by their view timestamp.
func SortForList(tasks []Task, role StatusRole) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return ViewTimestamp(tasks[i], role).After(ViewTimestamp(tasks[j], role))
	})
}
