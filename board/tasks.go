package board

import (
	"context"
	"strings"

	"tasktrail/domain"
)

// TaskInput is a task to create. Empty StatusID means Inbox.
type TaskInput struct {
	Title    string `json:"title"`
	StatusID string `json:"statusId"`
	Date     string `json:"date"`
}

// TaskEdit renames or re-dates a task. Nil fields are left untouched.
type TaskEdit struct {
	Title *string `json:"title"`
	Date  *string `json:"date"`
}

func (b *Board) defaultStatus() (string, error) {
	if id, ok := b.roles.ID(domain.RoleInbox); ok {
		return id, nil
	}
	if len(b.statuses) == 0 {
		return "", domain.ErrStatusNotFound
	}
	return domain.SortStatuses(b.statuses)[0].ID, nil
}

func (b *Board) prepare(in TaskInput, order int) (domain.NewTask, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.NewTask{}, domain.ErrEmptyTitle
	}
	status := in.StatusID
	if status == "" {
		var err error
		if status, err = b.defaultStatus(); err != nil {
			return domain.NewTask{}, err
		}
	} else if _, err := b.statusIndex(status); err != nil {
		return domain.NewTask{}, err
	}
	if in.Date != "" && !domain.ValidDate(in.Date) {
		return domain.NewTask{}, domain.ErrInvalidDate
	}
	date, started, completed := domain.InitialFields(status, in.Date, b.roles, b.opts.Now(), b.workingDate)
	if order == 0 {
		order = domain.NextOrder(b.tasks, status)
	}
	return domain.NewTask{
		Title:       title,
		StatusID:    status,
		Date:        date,
		Order:       order,
		StartedAt:   started,
		CompletedAt: completed,
	}, nil
}

// AddTask creates one task at the end of its status.
func (b *Board) AddTask(ctx context.Context, in TaskInput) (domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	nt, err := b.prepare(in, 0)
	if err != nil {
		return domain.Task{}, err
	}
	t, err := b.store.CreateTask(ctx, b.userID, nt)
	if err != nil {
		b.logFailure("add_task", err)
		return domain.Task{}, err
	}
	b.tasks = append(b.tasks, t)
	b.changed(ctx)
	return t, nil
}

// AddTasks creates tasks in one store call. Inputs with an empty title are
// dropped; orders are consecutive per destination status.
func (b *Board) AddTasks(ctx context.Context, in []TaskInput) ([]domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := map[string]int{}
	batch := make([]domain.NewTask, 0, len(in))
	for _, item := range in {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		nt, err := b.prepare(item, 0)
		if err != nil {
			return nil, err
		}
		if o, ok := next[nt.StatusID]; ok {
			nt.Order = o
		}
		next[nt.StatusID] = nt.Order + 1
		batch = append(batch, nt)
	}
	if len(batch) == 0 {
		return []domain.Task{}, nil
	}
	created, err := b.store.CreateTasks(ctx, b.userID, batch)
	if err != nil {
		b.logFailure("add_tasks", err)
		return nil, err
	}
	b.tasks = append(b.tasks, created...)
	b.changed(ctx)
	return created, nil
}

// ChangeTaskStatus moves a task to the end of statusID, renumbering the
// column it left. Moving into the current status changes nothing.
func (b *Board) ChangeTaskStatus(ctx context.Context, taskID, statusID string) (domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.changeStatus(ctx, taskID, statusID)
}

func (b *Board) changeStatus(ctx context.Context, taskID, statusID string) (domain.Task, error) {
	i, err := b.taskIndex(taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := b.statusIndex(statusID); err != nil {
		return domain.Task{}, err
	}
	before := b.tasks[i]
	if before.StatusID == statusID {
		return before, nil
	}
	now := b.opts.Now()
	moved := domain.Transition(before, statusID, b.roles, now, b.workingDate)
	moved.Order = domain.NextOrder(b.tasks, statusID)

	rest, srcWrites := domain.Renumber(withoutTask(domain.InStatus(b.tasks, before.StatusID), taskID))
	b.tasks[i] = moved
	b.replace(rest)

	writes := append([]domain.TaskWrite{{TaskID: taskID, Update: domain.TransitionUpdate(moved)}}, srcWrites...)
	change := &domain.StatusChange{TaskID: taskID, FromStatusID: before.StatusID, ToStatusID: statusID, ChangedAt: now}
	if err := b.persist(ctx, writes, change); err != nil {
		b.logFailure("change_status", err)
		return moved, err
	}
	b.changed(ctx)
	return b.tasks[domain.IndexOf(b.tasks, taskID)], nil
}

// AdvanceTask moves a task one step along Inbox, In Progress, Done and back.
func (b *Board) AdvanceTask(ctx context.Context, taskID string) (domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, err := b.taskIndex(taskID)
	if err != nil {
		return domain.Task{}, err
	}
	step, ok := domain.NextStatus(b.tasks[i].StatusID, b.roles)
	if !ok {
		return domain.Task{}, ErrNoTransition
	}
	return b.changeStatus(ctx, taskID, step.StatusID)
}

// ToggleTaskDone moves a task into Done, or out of it when already done.
func (b *Board) ToggleTaskDone(ctx context.Context, taskID string) (domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, err := b.taskIndex(taskID)
	if err != nil {
		return domain.Task{}, err
	}
	target, ok := domain.ToggleDoneTarget(b.tasks[i].StatusID, b.roles)
	if !ok {
		return domain.Task{}, ErrNoTransition
	}
	return b.changeStatus(ctx, taskID, target)
}

// ReorderOnDrag applies a task drag. A drag that changes nothing returns a
// no-op plan without touching the store.
func (b *Board) ReorderOnDrag(ctx context.Context, ev domain.DragEvent) (domain.DragPlan, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	plan := domain.ResolveDrag(domain.DragInput{
		Tasks:       b.tasks,
		Statuses:    b.statuses,
		Roles:       b.roles,
		Event:       ev,
		Now:         b.opts.Now(),
		WorkingDate: b.workingDate,
	})
	if !plan.Changed() {
		return plan, nil
	}
	b.tasks = plan.Tasks
	if err := b.persist(ctx, plan.Writes(), plan.History); err != nil {
		b.logFailure("drag", err)
		return plan, err
	}
	plan.Tasks = append([]domain.Task(nil), b.tasks...)
	b.changed(ctx)
	return plan, nil
}

// UpdateTask renames or re-dates a task. Inbox tasks stay undated.
func (b *Board) UpdateTask(ctx context.Context, taskID string, edit TaskEdit) (domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, err := b.taskIndex(taskID)
	if err != nil {
		return domain.Task{}, err
	}
	var upd domain.TaskUpdate
	if edit.Title != nil {
		title := strings.TrimSpace(*edit.Title)
		if title == "" {
			return domain.Task{}, domain.ErrEmptyTitle
		}
		upd.Title = &title
	}
	if edit.Date != nil && b.roles.Of(b.tasks[i].StatusID) != domain.RoleInbox {
		date := *edit.Date
		if date != "" && !domain.ValidDate(date) {
			return domain.Task{}, domain.ErrInvalidDate
		}
		upd.Date = &date
	}
	if upd.IsEmpty() {
		return b.tasks[i], nil
	}
	b.tasks[i] = upd.Apply(b.tasks[i])
	if err := b.persist(ctx, []domain.TaskWrite{{TaskID: taskID, Update: upd}}, nil); err != nil {
		b.logFailure("update_task", err)
		return b.tasks[i], err
	}
	b.changed(ctx)
	return b.tasks[i], nil
}

// DeleteTask removes a task and closes the gap in its column.
func (b *Board) DeleteTask(ctx context.Context, taskID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, err := b.taskIndex(taskID)
	if err != nil {
		return err
	}
	gone := b.tasks[i]
	b.tasks = withoutTask(b.tasks, taskID)
	rest, writes := domain.Renumber(domain.InStatus(b.tasks, gone.StatusID))
	b.replace(rest)
	if err := b.store.DeleteTask(ctx, b.userID, taskID); err != nil {
		b.logFailure("delete_task", err)
		return err
	}
	if err := b.persist(ctx, writes, nil); err != nil {
		b.logFailure("delete_task", err)
		return err
	}
	b.changed(ctx)
	return nil
}

// ArchiveTask takes a task off the board and closes the gap in its column.
func (b *Board) ArchiveTask(ctx context.Context, taskID string) (domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, err := b.taskIndex(taskID)
	if err != nil {
		return domain.Task{}, err
	}
	archived := true
	upd := domain.TaskUpdate{IsArchived: &archived, ArchivedAt: domain.SetTime(b.opts.Now())}
	task := upd.Apply(b.tasks[i])
	b.tasks = withoutTask(b.tasks, taskID)
	rest, writes := domain.Renumber(domain.InStatus(b.tasks, task.StatusID))
	b.replace(rest)
	writes = append([]domain.TaskWrite{{TaskID: taskID, Update: upd}}, writes...)
	if err := b.persist(ctx, writes, nil); err != nil {
		b.logFailure("archive_task", err)
		return task, err
	}
	b.changed(ctx)
	return task, nil
}

// UnarchiveTask puts an archived task back at the end of its status, or of
// Inbox when that status is gone.
func (b *Board) UnarchiveTask(ctx context.Context, taskID string) (domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	archived, err := b.store.FetchArchivedTasks(ctx, b.userID)
	if err != nil {
		return domain.Task{}, err
	}
	j := domain.IndexOf(archived, taskID)
	if j < 0 {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	task := archived[j]
	if _, err := b.statusIndex(task.StatusID); err != nil {
		inbox, ierr := b.defaultStatus()
		if ierr != nil {
			return domain.Task{}, ierr
		}
		task = domain.Transition(task, inbox, b.roles, b.opts.Now(), b.workingDate)
	}
	task.IsArchived = false
	task.ArchivedAt = nil
	task.Order = domain.NextOrder(b.tasks, task.StatusID)

	upd := domain.TransitionUpdate(task)
	upd.IsArchived = &task.IsArchived
	upd.ArchivedAt = domain.ClearTime()
	b.tasks = append(b.tasks, task)
	if err := b.persist(ctx, []domain.TaskWrite{{TaskID: taskID, Update: upd}}, nil); err != nil {
		b.logFailure("unarchive_task", err)
		return task, err
	}
	b.changed(ctx)
	return b.tasks[domain.IndexOf(b.tasks, taskID)], nil
}

// replace swaps in updated copies of tasks by id.
func (b *Board) replace(changed []domain.Task) {
	for _, t := range changed {
		if i := domain.IndexOf(b.tasks, t.ID); i >= 0 {
			b.tasks[i] = t
		}
	}
}

func withoutTask(tasks []domain.Task, id string) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}
