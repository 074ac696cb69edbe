package domain

import (
	"testing"
	"time"
)

func TestTransitionIntoActive(t *testing.T) {
	roles := testRoles()
	tk := task("t", "inbox", 1)
	got := Transition(tk, "doing", roles, testNow, testWorkDay)
	if got.StatusID != "doing" {
		t.Fatalf("status = %s", got.StatusID)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(testNow) {
		t.Fatalf("startedAt = %v", got.StartedAt)
	}
	if got.Date != testWorkDay {
		t.Fatalf("date = %q", got.Date)
	}

	// re-entering In Progress keeps the original start
	earlier := testNow.Add(-24 * time.Hour)
	tk.StatusID = "done"
	tk.StartedAt = ptrTime(earlier)
	tk.CompletedAt = ptrTime(testNow.Add(-time.Hour))
	tk.Date = "2026-03-01"
	got = Transition(tk, "doing", roles, testNow, testWorkDay)
	if !got.StartedAt.Equal(earlier) {
		t.Fatalf("startedAt overwritten: %v", got.StartedAt)
	}
	if got.CompletedAt != nil {
		t.Fatalf("completedAt not cleared")
	}
	if got.Date != "2026-03-01" {
		t.Fatalf("date = %q", got.Date)
	}
}

func TestTransitionIntoCustomStatus(t *testing.T) {
	tk := task("t", "done", 1)
	tk.CompletedAt = ptrTime(testNow)
	tk.StartedAt = ptrTime(testNow)
	got := Transition(tk, "later", testRoles(), testNow, testWorkDay)
	if got.CompletedAt != nil {
		t.Fatalf("completedAt not cleared")
	}
	if got.StartedAt == nil {
		t.Fatalf("startedAt should be kept")
	}
}

func TestTransitionSameStatusIsIdentity(t *testing.T) {
	tk := task("t", "doing", 1)
	tk.Date = "2026-01-01"
	got := Transition(tk, "doing", testRoles(), testNow, testWorkDay)
	if got.StartedAt != nil || got.Date != "2026-01-01" {
		t.Fatalf("same status changed task: %+v", got)
	}
}

func TestInitialFields(t *testing.T) {
	roles := testRoles()
	date, started, completed := InitialFields("inbox", "2026-02-02", roles, testNow, testWorkDay)
	if date != "" || started != nil || completed != nil {
		t.Fatalf("inbox: %q %v %v", date, started, completed)
	}
	date, started, completed = InitialFields("doing", "", roles, testNow, testWorkDay)
	if date != testWorkDay || started == nil || completed != nil {
		t.Fatalf("active: %q %v %v", date, started, completed)
	}
	date, started, completed = InitialFields("done", "2026-02-02", roles, testNow, testWorkDay)
	if date != "2026-02-02" || started != nil || completed == nil {
		t.Fatalf("done: %q %v %v", date, started, completed)
	}
	date, _, _ = InitialFields("later", "", roles, testNow, testWorkDay)
	if date != testWorkDay {
		t.Fatalf("custom: %q", date)
	}
}

func TestNextStatus(t *testing.T) {
	roles := testRoles()
	cases := []struct {
		from, to, label string
	}{
		{"inbox", "doing", "Start"},
		{"doing", "done", "Complete"},
		{"done", "inbox", "Reset"},
	}
	for _, tc := range cases {
		step, ok := NextStatus(tc.from, roles)
		if !ok || step.StatusID != tc.to || step.Label != tc.label {
			t.Fatalf("NextStatus(%s) = %+v, %v", tc.from, step, ok)
		}
	}
	if _, ok := NextStatus("later", roles); ok {
		t.Fatalf("custom status should have no next step")
	}
}

func TestToggleDoneTarget(t *testing.T) {
	roles := testRoles()
	if id, ok := ToggleDoneTarget("inbox", roles); !ok || id != "done" {
		t.Fatalf("into done = %s %v", id, ok)
	}
	if id, ok := ToggleDoneTarget("done", roles); !ok || id != "doing" {
		t.Fatalf("out of done = %s %v", id, ok)
	}
	noActive := ResolveRoles([]Status{{ID: "i", Name: "Inbox", Order: 1}, {ID: "d", Name: "Done", Order: 2}}, DefaultRoleNames)
	if id, ok := ToggleDoneTarget("d", noActive); !ok || id != "i" {
		t.Fatalf("fallback = %s %v", id, ok)
	}
	if _, ok := ToggleDoneTarget("x", Roles{}); ok {
		t.Fatalf("board without done should not toggle")
	}
}

func TestTransitionUpdateAppliesTask(t *testing.T) {
	before := task("t", "inbox", 3)
	after := Transition(before, "doing", testRoles(), testNow, testWorkDay)
	after.Order = 1
	got := TransitionUpdate(after).Apply(before)
	if got.StatusID != "doing" || got.Order != 1 || got.Date != testWorkDay || got.StartedAt == nil {
		t.Fatalf("applied = %+v", got)
	}
}
