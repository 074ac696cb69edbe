package domain

import (
	"regexp"
	"sort"
	"time"
)

// Task represents a single board item.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	StatusID    string     `json:"statusId"`
	Date        string     `json:"date"`
	Order       int        `json:"order"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	IsArchived  bool       `json:"isArchived"`
	ArchivedAt  *time.Time `json:"archivedAt"`
}

// NewTask carries the fields required to create a task.
type NewTask struct {
	Title       string     `json:"title"`
	StatusID    string     `json:"statusId"`
	Date        string     `json:"date"`
	Order       int        `json:"order"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// OptionalTime is a nullable timestamp change. A nil Time clears the field.
type OptionalTime struct {
	Time *time.Time
}

// SetTime returns a change that sets the field to t.
func SetTime(t time.Time) *OptionalTime {
	return &OptionalTime{Time: &t}
}

// ClearTime returns a change that clears the field.
func ClearTime() *OptionalTime {
	return &OptionalTime{}
}

// TaskUpdate carries partial updates for a task. Nil fields are left untouched.
type TaskUpdate struct {
	Title       *string
	StatusID    *string
	Date        *string
	Order       *int
	StartedAt   *OptionalTime
	CompletedAt *OptionalTime
	IsArchived  *bool
	ArchivedAt  *OptionalTime
}

// IsEmpty reports whether the update carries no changes.
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.StatusID == nil && u.Date == nil && u.Order == nil &&
		u.StartedAt == nil && u.CompletedAt == nil && u.IsArchived == nil && u.ArchivedAt == nil
}

// Apply returns t with the update merged in.
func (u TaskUpdate) Apply(t Task) Task {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.StatusID != nil {
		t.StatusID = *u.StatusID
	}
	if u.Date != nil {
		t.Date = *u.Date
	}
	if u.Order != nil {
		t.Order = *u.Order
	}
	if u.StartedAt != nil {
		t.StartedAt = copyTime(u.StartedAt.Time)
	}
	if u.CompletedAt != nil {
		t.CompletedAt = copyTime(u.CompletedAt.Time)
	}
	if u.IsArchived != nil {
		t.IsArchived = *u.IsArchived
	}
	if u.ArchivedAt != nil {
		t.ArchivedAt = copyTime(u.ArchivedAt.Time)
	}
	return t
}

// OrderUpdate is an update that only renumbers a task.
func OrderUpdate(order int) TaskUpdate {
	return TaskUpdate{Order: &order}
}

// TaskWrite pairs a task id with the update to persist for it.
type TaskWrite struct {
	TaskID string
	Update TaskUpdate
}

// StatusChange is one entry of the status-history audit log.
type StatusChange struct {
	TaskID       string    `json:"taskId"`
	FromStatusID string    `json:"fromStatusId,omitempty"`
	ToStatusID   string    `json:"toStatusId"`
	ChangedAt    time.Time `json:"changedAt"`
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidDate reports whether s is a calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

// DateOf formats t as a YYYY-MM-DD date in UTC.
func DateOf(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// InStatus returns the tasks of statusID sorted by order.
func InStatus(tasks []Task, statusID string) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.StatusID == statusID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// NextOrder returns the order a task appended to statusID should receive.
func NextOrder(tasks []Task, statusID string) int {
	highest := 0
	for _, t := range tasks {
		if t.StatusID == statusID && t.Order > highest {
			highest = t.Order
		}
	}
	return highest + 1
}

// Renumber assigns dense 1-based orders to tasks in slice order and returns
// the writes for the tasks whose order changed.
func Renumber(tasks []Task) ([]Task, []TaskWrite) {
	out := make([]Task, len(tasks))
	var writes []TaskWrite
	for i, t := range tasks {
		if t.Order != i+1 {
			t.Order = i + 1
			writes = append(writes, TaskWrite{TaskID: t.ID, Update: OrderUpdate(t.Order)})
		}
		out[i] = t
	}
	return out, writes
}

// IndexOf returns the position of the task with id, or -1.
func IndexOf(tasks []Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// SortBoard orders tasks by their status position, then by task order.
func SortBoard(tasks []Task, statuses []Status) {
	pos := make(map[string]int, len(statuses))
	for _, s := range statuses {
		pos[s.ID] = s.Order
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := pos[tasks[i].StatusID], pos[tasks[j].StatusID]
		if a == b {
			return tasks[i].Order < tasks[j].Order
		}
		return a < b
	})
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
