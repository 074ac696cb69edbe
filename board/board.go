package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"tasktrail/domain"
)

const defaultConcurrency = 8

// Options configures a board.
type Options struct {
	Names domain.RoleNames
	// Concurrency bounds the number of task writes in flight per command.
	Concurrency int
	Now         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// Snapshot is a consistent copy of a board.
type Snapshot struct {
	Statuses    []domain.Status `json:"statuses"`
	Tasks       []domain.Task   `json:"tasks"`
	Roles       domain.RoleIDs  `json:"roles"`
	WorkingDate string          `json:"workingDate"`
}

// Board is the single writer of one user's statuses and non-archived tasks.
// Commands hold the board lock from computing the change until it has been
// persisted, so no two commands interleave. Local state is not rolled back
// when persistence fails.
type Board struct {
	mu     sync.Mutex
	userID string
	store  Store
	opts   Options

	loaded      bool
	statuses    []domain.Status
	tasks       []domain.Task
	roles       domain.Roles
	workingDate string

	onChange func(ctx context.Context)
}

func New(userID string, store Store, opts Options) *Board {
	return &Board{userID: userID, store: store, opts: opts.withDefaults()}
}

// UserID returns the owner of the board.
func (b *Board) UserID() string { return b.userID }

// Bootstrap loads the board from the store. Tasks whose status no longer
// exists are moved to Inbox.
func (b *Board) Bootstrap(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bootstrap(ctx)
}

func (b *Board) ensureLoaded(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loaded {
		return nil
	}
	return b.bootstrap(ctx)
}

func (b *Board) bootstrap(ctx context.Context) error {
	statuses, err := b.store.EnsureDefaultStatuses(ctx, b.userID, b.opts.Names)
	if err != nil {
		return fmt.Errorf("ensure default statuses: %w", err)
	}
	tasks, err := b.store.ListTasks(ctx, b.userID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	b.statuses = domain.SortStatuses(statuses)
	b.tasks = tasks
	b.roles = domain.ResolveRoles(b.statuses, b.opts.Names)
	if b.workingDate == "" {
		b.workingDate = domain.DateOf(b.opts.Now())
	}
	b.loaded = true
	b.repairOrphans(ctx)
	return nil
}

// repairOrphans moves tasks with an unknown status to the end of Inbox.
func (b *Board) repairOrphans(ctx context.Context) {
	inbox, ok := b.roles.ID(domain.RoleInbox)
	if !ok {
		return
	}
	var writes []domain.TaskWrite
	now := b.opts.Now()
	for i, t := range b.tasks {
		if _, ok := domain.FindStatus(b.statuses, t.StatusID); ok {
			continue
		}
		moved := domain.Transition(t, inbox, b.roles, now, b.workingDate)
		moved.Order = domain.NextOrder(b.tasks, inbox)
		b.tasks[i] = moved
		writes = append(writes, domain.TaskWrite{TaskID: t.ID, Update: domain.TransitionUpdate(moved)})
	}
	if len(writes) == 0 {
		return
	}
	log.WithFields(log.Fields{"user": b.userID, "tasks": len(writes)}).Info("moving tasks with unknown status to inbox")
	if err := b.persist(ctx, writes, nil); err != nil {
		log.WithError(err).WithField("user", b.userID).Warn("repair orphaned tasks")
	}
}

// Snapshot returns a copy of the board: statuses by order, tasks by status
// position then task order.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

func (b *Board) snapshot() Snapshot {
	tasks := append([]domain.Task(nil), b.tasks...)
	domain.SortBoard(tasks, b.statuses)
	return Snapshot{
		Statuses:    domain.SortStatuses(b.statuses),
		Tasks:       tasks,
		Roles:       b.roles.IDs(),
		WorkingDate: b.workingDate,
	}
}

// Roles returns the resolved role ids of the board.
func (b *Board) Roles() domain.Roles {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.roles
}

// WorkingDate is the date new and started tasks default to.
func (b *Board) WorkingDate() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.workingDate
}

// SetWorkingDate changes the working date. An empty date resets it to today.
func (b *Board) SetWorkingDate(ctx context.Context, date string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if date == "" {
		date = domain.DateOf(b.opts.Now())
	}
	if !domain.ValidDate(date) {
		return "", domain.ErrInvalidDate
	}
	b.workingDate = date
	b.changed(ctx)
	return date, nil
}

func (b *Board) changed(ctx context.Context) {
	if b.onChange != nil {
		b.onChange(ctx)
	}
}

func (b *Board) taskIndex(id string) (int, error) {
	i := domain.IndexOf(b.tasks, id)
	if i < 0 {
		return -1, domain.ErrTaskNotFound
	}
	return i, nil
}

func (b *Board) statusIndex(id string) (int, error) {
	for i, s := range b.statuses {
		if s.ID == id {
			return i, nil
		}
	}
	return -1, domain.ErrStatusNotFound
}

// persist issues the task writes concurrently, then appends the history
// entry. Only the store's UpdatedAt stamp is taken from the returned rows; the
// local task stays authoritative even when the stored row is stale. The first
// error is returned.
func (b *Board) persist(ctx context.Context, writes []domain.TaskWrite, change *domain.StatusChange) error {
	var g errgroup.Group
	g.SetLimit(b.opts.Concurrency)
	stored := make([]domain.Task, len(writes))
	for i, w := range writes {
		g.Go(func() error {
			t, err := b.store.UpdateTask(ctx, b.userID, w.TaskID, w.Update)
			if err != nil {
				return fmt.Errorf("update task %s: %w", w.TaskID, err)
			}
			stored[i] = t
			return nil
		})
	}
	err := g.Wait()
	b.refresh(stored)
	if err != nil {
		return err
	}
	if change != nil {
		if err := b.store.CreateTaskStatusHistory(ctx, b.userID, *change); err != nil {
			return fmt.Errorf("append status history: %w", err)
		}
	}
	return nil
}

func (b *Board) refresh(stored []domain.Task) {
	for _, t := range stored {
		if t.ID == "" || t.UpdatedAt.IsZero() {
			continue
		}
		if i := domain.IndexOf(b.tasks, t.ID); i >= 0 {
			b.tasks[i].UpdatedAt = t.UpdatedAt
		}
	}
}

// invalidate marks the board stale so the next Registry.Board call reloads it
// from the store. A command in flight finishes first.
func (b *Board) invalidate() {
	b.mu.Lock()
	b.loaded = false
	b.mu.Unlock()
}

func (b *Board) logFailure(op string, err error) {
	log.WithError(err).WithFields(log.Fields{"user": b.userID, "op": op}).Error("board persistence failed")
}
