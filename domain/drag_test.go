package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeIDs(ws []TaskWrite) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.TaskID)
	}
	return out
}

func findTask(t *testing.T, tasks []Task, id string) Task {
	t.Helper()
	i := IndexOf(tasks, id)
	if i < 0 {
		t.Fatalf("task %s missing", id)
	}
	return tasks[i]
}

func TestResolveDragSameContainer(t *testing.T) {
	tasks := []Task{task("A", "inbox", 1), task("B", "inbox", 2), task("C", "inbox", 3), task("D", "inbox", 4)}
	plan := ResolveDrag(DragInput{
		Tasks:    tasks,
		Statuses: testStatuses(),
		Roles:    testRoles(),
		Event: DragEvent{
			Active: DragItem{ID: "A", ContainerID: "inbox"},
			Over:   &DragItem{ID: "C", ContainerID: "inbox"},
		},
		Now:         testNow,
		WorkingDate: testWorkDay,
	})
	if plan.Kind != DragSameContainer {
		t.Fatalf("kind = %s", plan.Kind)
	}
	if diff := cmp.Diff([]string{"B", "A", "C", "D"}, orders(plan.Tasks, "inbox")); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "B"}, writeIDs(plan.Writes())); diff != "" {
		t.Fatalf("writes mismatch (-want +got):\n%s", diff)
	}
	if plan.History != nil {
		t.Fatalf("reorder must not record history")
	}
	for i, tk := range InStatus(plan.Tasks, "inbox") {
		if tk.Order != i+1 {
			t.Fatalf("order of %s = %d, want %d", tk.ID, tk.Order, i+1)
		}
	}
}

func TestResolveDragSameContainerMoveDown(t *testing.T) {
	tasks := []Task{task("A", "inbox", 1), task("B", "inbox", 2), task("C", "inbox", 3)}
	plan := ResolveDrag(DragInput{
		Tasks:    tasks,
		Statuses: testStatuses(),
		Roles:    testRoles(),
		Event: DragEvent{
			Active: DragItem{ID: "C", ContainerID: "inbox"},
			Over:   &DragItem{ID: "A", ContainerID: "inbox"},
		},
	})
	if diff := cmp.Diff([]string{"C", "A", "B"}, orders(plan.Tasks, "inbox")); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if len(plan.Writes()) != 3 {
		t.Fatalf("writes = %v", writeIDs(plan.Writes()))
	}
}

func TestResolveDragOntoOwnColumnAppends(t *testing.T) {
	tasks := []Task{task("A", "inbox", 1), task("B", "inbox", 2), task("C", "inbox", 3)}
	plan := ResolveDrag(DragInput{
		Tasks:    tasks,
		Statuses: testStatuses(),
		Roles:    testRoles(),
		Event: DragEvent{
			Active: DragItem{ID: "A", ContainerID: "inbox"},
			Over:   &DragItem{ID: "inbox"},
		},
	})
	if diff := cmp.Diff([]string{"B", "C", "A"}, orders(plan.Tasks, "inbox")); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveDragUnknownTargetInColumnAppends(t *testing.T) {
	tasks := []Task{
		task("A", "inbox", 1), task("B", "inbox", 2), task("C", "inbox", 3),
		task("P", "doing", 1), task("Q", "doing", 2),
	}
	cases := map[string]struct {
		active DragItem
		column string
		want   []string
	}{
		"same_column":  {active: DragItem{ID: "A", ContainerID: "inbox"}, column: "inbox", want: []string{"B", "C", "A"}},
		"other_column": {active: DragItem{ID: "B", ContainerID: "inbox"}, column: "doing", want: []string{"P", "Q", "B"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			plan := ResolveDrag(DragInput{
				Tasks:    tasks,
				Statuses: testStatuses(),
				Roles:    testRoles(),
				Event: DragEvent{
					Active: tc.active,
					Over:   &DragItem{ID: "missing", ContainerID: tc.column},
				},
				Now:         testNow,
				WorkingDate: testWorkDay,
			})
			if plan.Kind == DragNoOp {
				t.Fatalf("drop on unknown task in a known column must move the task")
			}
			if diff := cmp.Diff(tc.want, orders(plan.Tasks, tc.column)); diff != "" {
				t.Fatalf("order mismatch (-want +got):\n%s", diff)
			}
			moved := findTask(t, plan.Tasks, tc.active.ID)
			if moved.Order != len(tc.want) {
				t.Fatalf("moved order = %d, want %d", moved.Order, len(tc.want))
			}
		})
	}
}

func TestResolveDragCrossContainer(t *testing.T) {
	tasks := []Task{
		task("X", "inbox", 1), task("T", "inbox", 2), task("Y", "inbox", 3),
		task("P", "doing", 1),
	}
	plan := ResolveDrag(DragInput{
		Tasks:    tasks,
		Statuses: testStatuses(),
		Roles:    testRoles(),
		Event: DragEvent{
			Active: DragItem{ID: "T", ContainerID: "inbox"},
			Over:   &DragItem{ID: "doing"},
		},
		Now:         testNow,
		WorkingDate: testWorkDay,
	})
	if plan.Kind != DragCrossContainer {
		t.Fatalf("kind = %s", plan.Kind)
	}
	if diff := cmp.Diff([]string{"X", "Y"}, orders(plan.Tasks, "inbox")); diff != "" {
		t.Fatalf("source mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"P", "T"}, orders(plan.Tasks, "doing")); diff != "" {
		t.Fatalf("dest mismatch (-want +got):\n%s", diff)
	}
	moved := findTask(t, plan.Tasks, "T")
	if moved.StartedAt == nil || !moved.StartedAt.Equal(testNow) {
		t.Fatalf("startedAt = %v", moved.StartedAt)
	}
	if moved.Date != testWorkDay {
		t.Fatalf("date = %q", moved.Date)
	}
	if moved.CompletedAt != nil {
		t.Fatalf("completedAt should be nil")
	}
	if y := findTask(t, plan.Tasks, "Y"); y.Order != 2 {
		t.Fatalf("Y order = %d", y.Order)
	}
	if diff := cmp.Diff([]string{"T", "Y"}, writeIDs(plan.Writes())); diff != "" {
		t.Fatalf("writes mismatch (-want +got):\n%s", diff)
	}
	want := &StatusChange{TaskID: "T", FromStatusID: "inbox", ToStatusID: "doing", ChangedAt: testNow}
	if diff := cmp.Diff(want, plan.History); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveDragCrossContainerIntoPosition(t *testing.T) {
	tasks := []Task{
		task("T", "inbox", 1),
		task("P", "doing", 1), task("Q", "doing", 2),
	}
	plan := ResolveDrag(DragInput{
		Tasks:    tasks,
		Statuses: testStatuses(),
		Roles:    testRoles(),
		Event: DragEvent{
			Active: DragItem{ID: "T", ContainerID: "inbox"},
			Over:   &DragItem{ID: "Q", ContainerID: "doing"},
		},
		Now:         testNow,
		WorkingDate: testWorkDay,
	})
	if diff := cmp.Diff([]string{"P", "T", "Q"}, orders(plan.Tasks, "doing")); diff != "" {
		t.Fatalf("dest mismatch (-want +got):\n%s", diff)
	}
	seen := map[string]bool{}
	for _, w := range plan.Writes() {
		if seen[w.TaskID] {
			t.Fatalf("duplicate write for %s", w.TaskID)
		}
		seen[w.TaskID] = true
	}
}

func TestResolveDragToDoneKeepsStartedAt(t *testing.T) {
	started := testNow.Add(-3 * time.Hour)
	tk := task("T", "doing", 1)
	tk.StartedAt = ptrTime(started)
	tk.Date = "2026-03-01"
	plan := ResolveDrag(DragInput{
		Tasks:    []Task{tk},
		Statuses: testStatuses(),
		Roles:    testRoles(),
		Event: DragEvent{
			Active: DragItem{ID: "T", ContainerID: "doing"},
			Over:   &DragItem{ID: "done"},
		},
		Now:         testNow,
		WorkingDate: testWorkDay,
	})
	got := findTask(t, plan.Tasks, "T")
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Fatalf("startedAt = %v, want %v", got.StartedAt, started)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(testNow) {
		t.Fatalf("completedAt = %v", got.CompletedAt)
	}
	if got.Date != "2026-03-01" {
		t.Fatalf("date = %q", got.Date)
	}
}

func TestResolveDragToInboxClearsTimestamps(t *testing.T) {
	tk := task("T", "done", 1)
	tk.StartedAt = ptrTime(testNow.Add(-2 * time.Hour))
	tk.CompletedAt = ptrTime(testNow.Add(-time.Hour))
	tk.Date = "2026-03-02"
	plan := ResolveDrag(DragInput{
		Tasks:    []Task{tk},
		Statuses: testStatuses(),
		Roles:    testRoles(),
		Event: DragEvent{
			Active: DragItem{ID: "T", ContainerID: "done"},
			Over:   &DragItem{ID: "inbox"},
		},
		Now:         testNow,
		WorkingDate: testWorkDay,
	})
	got := findTask(t, plan.Tasks, "T")
	if got.StartedAt != nil || got.CompletedAt != nil {
		t.Fatalf("timestamps not cleared: %v %v", got.StartedAt, got.CompletedAt)
	}
	if got.Date != "" {
		t.Fatalf("date = %q", got.Date)
	}
	upd := plan.Moved.Update
	if upd.StartedAt == nil || upd.StartedAt.Time != nil || upd.CompletedAt == nil || upd.CompletedAt.Time != nil {
		t.Fatalf("moved write must clear both timestamps explicitly")
	}
}

func TestResolveDragNoOps(t *testing.T) {
	tasks := []Task{task("A", "inbox", 1), task("B", "inbox", 2)}
	cases := map[string]DragEvent{
		"no_target":       {Active: DragItem{ID: "A", ContainerID: "inbox"}},
		"onto_itself":     {Active: DragItem{ID: "A", ContainerID: "inbox"}, Over: &DragItem{ID: "A", ContainerID: "inbox"}},
		"unknown_task":    {Active: DragItem{ID: "Z", ContainerID: "inbox"}, Over: &DragItem{ID: "B", ContainerID: "inbox"}},
		"unknown_column":  {Active: DragItem{ID: "A", ContainerID: "inbox"}, Over: &DragItem{ID: "nowhere"}},
		"no_container":    {Active: DragItem{ID: "A"}, Over: &DragItem{ID: "B", ContainerID: "inbox"}},
		"already_in_last": {Active: DragItem{ID: "B", ContainerID: "inbox"}, Over: &DragItem{ID: "inbox"}},
	}
	for name, ev := range cases {
		t.Run(name, func(t *testing.T) {
			plan := ResolveDrag(DragInput{Tasks: tasks, Statuses: testStatuses(), Roles: testRoles(), Event: ev})
			if plan.Kind != DragNoOp {
				t.Fatalf("kind = %s", plan.Kind)
			}
			if len(plan.Writes()) != 0 || plan.History != nil {
				t.Fatalf("no-op produced writes: %v", writeIDs(plan.Writes()))
			}
			if diff := cmp.Diff(tasks, plan.Tasks); diff != "" {
				t.Fatalf("tasks changed (-want +got):\n%s", diff)
			}
		})
	}
}
