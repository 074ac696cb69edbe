package domain

import "time"

// DragItem is one side of a drag interaction.
type DragItem struct {
	ID          string `json:"id"`
	ContainerID string `json:"containerId,omitempty"`
}

// DragEvent is a completed drag-and-drop interaction. Over is nil when the
// item was released outside any drop target.
type DragEvent struct {
	Active DragItem  `json:"active"`
	Over   *DragItem `json:"over"`
}

// TargetContainer returns the container the item was dropped into: the drop
// target's container, or the target itself when it is a container.
func (e DragEvent) TargetContainer() (string, bool) {
	if e.Over == nil || e.Active.ContainerID == "" {
		return "", false
	}
	if e.Over.ContainerID != "" {
		return e.Over.ContainerID, true
	}
	if e.Over.ID == "" {
		return "", false
	}
	return e.Over.ID, true
}

// IsNoOp reports whether the event can never change anything.
func (e DragEvent) IsNoOp() bool {
	return e.Over == nil || e.Active.ID == "" || e.Active.ID == e.Over.ID
}

// DragKind classifies a resolved drag.
type DragKind string

const (
	DragNoOp           DragKind = "noop"
	DragSameContainer  DragKind = "reorder"
	DragCrossContainer DragKind = "move"
)

// DragInput is everything the resolver looks at.
type DragInput struct {
	Tasks       []Task
	Statuses    []Status
	Roles       Roles
	Event       DragEvent
	Now         time.Time
	WorkingDate string
}

// DragPlan is the outcome of a drag: the new task set and the writes that
// persist it. Each task id appears at most once across Moved and Renumbered.
type DragPlan struct {
	Kind       DragKind
	Moved      *TaskWrite
	Renumbered []TaskWrite
	History    *StatusChange
	Tasks      []Task
}

// Writes returns every task write of the plan, moved task first.
func (p DragPlan) Writes() []TaskWrite {
	out := make([]TaskWrite, 0, len(p.Renumbered)+1)
	if p.Moved != nil {
		out = append(out, *p.Moved)
	}
	return append(out, p.Renumbered...)
}

// Changed reports whether the plan alters any task.
func (p DragPlan) Changed() bool {
	return p.Moved != nil || len(p.Renumbered) > 0
}

// ResolveDrag interprets a drag of a task between or within status columns.
//
// Within one column the task is placed at the drop target's position in the
// list without the dragged task; a target that is not a task of the column
// appends to the end. Across columns the task is inserted at the drop
// target's position in the destination (end when not found), both columns are
// renumbered 1..n and the status transition rules are applied.
func ResolveDrag(in DragInput) DragPlan {
	noop := DragPlan{Kind: DragNoOp, Tasks: in.Tasks}
	ev := in.Event
	if ev.IsNoOp() {
		return noop
	}
	idx := IndexOf(in.Tasks, ev.Active.ID)
	if idx < 0 {
		return noop
	}
	active := in.Tasks[idx]
	target, ok := ev.TargetContainer()
	if !ok {
		return noop
	}
	if _, ok := FindStatus(in.Statuses, target); !ok {
		return noop
	}

	source := InStatus(in.Tasks, active.StatusID)
	if active.StatusID == target {
		return resolveSameContainer(in, source, active)
	}
	return resolveCrossContainer(in, source, active, target)
}

func resolveSameContainer(in DragInput, list []Task, active Task) DragPlan {
	from := IndexOf(list, active.ID)
	rest := withoutTask(list, active.ID)
	to := IndexOf(rest, in.Event.Over.ID)
	if to < 0 {
		to = len(rest)
	}
	renumbered, writes := Renumber(Reorder(list, from, to))
	plan := DragPlan{Kind: DragSameContainer, Tasks: mergeTasks(in.Tasks, renumbered)}
	for _, w := range writes {
		if w.TaskID == active.ID {
			mw := w
			plan.Moved = &mw
			continue
		}
		plan.Renumbered = append(plan.Renumbered, w)
	}
	if !plan.Changed() {
		plan.Kind = DragNoOp
	}
	return plan
}

func resolveCrossContainer(in DragInput, source []Task, active Task, target string) DragPlan {
	dest := InStatus(in.Tasks, target)
	insertAt := IndexOf(dest, in.Event.Over.ID)
	if insertAt < 0 {
		insertAt = len(dest)
	}
	moved := Transition(active, target, in.Roles, in.Now, in.WorkingDate)

	withMoved := make([]Task, 0, len(dest)+1)
	withMoved = append(withMoved, dest[:insertAt]...)
	withMoved = append(withMoved, moved)
	withMoved = append(withMoved, dest[insertAt:]...)

	destTasks, destWrites := Renumber(withMoved)
	srcTasks, srcWrites := Renumber(withoutTask(source, active.ID))

	plan := DragPlan{Kind: DragCrossContainer, Tasks: mergeTasks(in.Tasks, append(destTasks, srcTasks...))}
	for _, t := range destTasks {
		if t.ID == active.ID {
			plan.Moved = &TaskWrite{TaskID: t.ID, Update: TransitionUpdate(t)}
			break
		}
	}
	for _, w := range destWrites {
		if w.TaskID != active.ID {
			plan.Renumbered = append(plan.Renumbered, w)
		}
	}
	plan.Renumbered = append(plan.Renumbered, srcWrites...)
	plan.History = &StatusChange{
		TaskID:       active.ID,
		FromStatusID: active.StatusID,
		ToStatusID:   target,
		ChangedAt:    in.Now,
	}
	return plan
}

func withoutTask(tasks []Task, id string) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

// mergeTasks replaces tasks in base by id with their counterparts in changed.
func mergeTasks(base, changed []Task) []Task {
	byID := make(map[string]Task, len(changed))
	for _, t := range changed {
		byID[t.ID] = t
	}
	out := make([]Task, len(base))
	for i, t := range base {
		if c, ok := byID[t.ID]; ok {
			out[i] = c
			continue
		}
		out[i] = t
	}
	return out
}
