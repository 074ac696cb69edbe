package domain

import "time"

var (
	testNow     = time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
	testWorkDay = "2026-03-04"
)

func testStatuses() []Status {
	return []Status{
		{ID: "inbox", Name: "Inbox", Order: 1},
		{ID: "doing", Name: "In Progress", Order: 2},
		{ID: "done", Name: "Done", Order: 3},
		{ID: "later", Name: "Someday", Order: 4},
	}
}

func testRoles() Roles {
	return ResolveRoles(testStatuses(), DefaultRoleNames)
}

func ptrTime(t time.Time) *time.Time { return &t }

func task(id, status string, order int) Task {
	return Task{ID: id, Title: id, StatusID: status, Order: order}
}

func orders(tasks []Task, status string) []string {
	var out []string
	for _, t := range InStatus(tasks, status) {
		out = append(out, t.ID)
	}
	return out
}
