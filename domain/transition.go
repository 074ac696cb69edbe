package domain

import "time"

// Transition re-derives the status dependent fields of task for a move into
// target. Moving into the status the task already has changes nothing.
//
//   - Inbox: undated, startedAt and completedAt cleared.
//   - In Progress: startedAt set once, completedAt cleared, date defaults to
//     the working date.
//   - Done: completedAt set, startedAt and date kept.
//   - any other status: completedAt cleared.
func Transition(task Task, target string, roles Roles, now time.Time, workingDate string) Task {
	if task.StatusID == target {
		return task
	}
	task.StatusID = target
	switch roles.Of(target) {
	case RoleInbox:
		task.Date = ""
		task.StartedAt = nil
		task.CompletedAt = nil
	case RoleActive:
		if task.StartedAt == nil {
			task.StartedAt = copyTime(&now)
		}
		task.CompletedAt = nil
		if task.Date == "" {
			task.Date = workingDate
		}
	case RoleDone:
		task.CompletedAt = copyTime(&now)
	default:
		task.CompletedAt = nil
	}
	return task
}

// TransitionUpdate builds the write for a task that changed status. Status,
// order, date and both timestamps are always carried explicitly.
func TransitionUpdate(after Task) TaskUpdate {
	status := after.StatusID
	date := after.Date
	order := after.Order
	upd := TaskUpdate{StatusID: &status, Date: &date, Order: &order}
	upd.StartedAt = &OptionalTime{Time: copyTime(after.StartedAt)}
	upd.CompletedAt = &OptionalTime{Time: copyTime(after.CompletedAt)}
	return upd
}

// InitialFields derives date and timestamps for a task created directly in
// statusID.
func InitialFields(statusID, date string, roles Roles, now time.Time, workingDate string) (string, *time.Time, *time.Time) {
	switch roles.Of(statusID) {
	case RoleInbox:
		return "", nil, nil
	case RoleActive:
		if date == "" {
			date = workingDate
		}
		return date, copyTime(&now), nil
	case RoleDone:
		if date == "" {
			date = workingDate
		}
		return date, nil, copyTime(&now)
	}
	if date == "" {
		date = workingDate
	}
	return date, nil, nil
}

// NextStep describes the advance action available for a status.
type NextStep struct {
	StatusID string `json:"statusId"`
	Label    string `json:"label"`
}

// NextStatus returns where the advance action takes a task in statusID:
// Inbox to In Progress, In Progress to Done, Done back to Inbox.
func NextStatus(statusID string, roles Roles) (NextStep, bool) {
	var role StatusRole
	var label string
	switch roles.Of(statusID) {
	case RoleInbox:
		role, label = RoleActive, "Start"
	case RoleActive:
		role, label = RoleDone, "Complete"
	case RoleDone:
		role, label = RoleInbox, "Reset"
	default:
		return NextStep{}, false
	}
	id, ok := roles.ID(role)
	if !ok {
		return NextStep{}, false
	}
	return NextStep{StatusID: id, Label: label}, true
}

// ToggleDoneTarget returns the status a done toggle moves a task to: out of
// Done into In Progress (or Inbox when there is none), otherwise into Done.
func ToggleDoneTarget(statusID string, roles Roles) (string, bool) {
	done, ok := roles.ID(RoleDone)
	if !ok {
		return "", false
	}
	if statusID != done {
		return done, true
	}
	if id, ok := roles.ID(RoleActive); ok {
		return id, true
	}
	return roles.ID(RoleInbox)
}
