package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tasktrail/domain"
)

var errBoom = errors.New("boom")

type fakeStore struct {
	mu       sync.Mutex
	seq      int
	tasks    map[string]domain.Task
	statuses map[string]domain.Status
	history  []domain.StatusChange
	updates  []string
	deleted  []string
	failOn   map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{tasks: map[string]domain.Task{}, statuses: map[string]domain.Status{}, failOn: map[string]bool{}}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq)
}

func (f *fakeStore) seedStatus(id, name string, order int) {
	f.statuses[id] = domain.Status{ID: id, Name: name, Order: order}
}

func (f *fakeStore) seedTask(t domain.Task) {
	f.tasks[t.ID] = t
}

func (f *fakeStore) fail(op string) error {
	if f.failOn[op] {
		return errBoom
	}
	return nil
}

func (f *fakeStore) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Task
	for _, t := range f.tasks {
		if !t.IsArchived {
			out = append(out, t)
		}
	}
	return out, f.fail("ListTasks")
}

func (f *fakeStore) FetchArchivedTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Task
	for _, t := range f.tasks {
		if t.IsArchived {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) create(in domain.NewTask) domain.Task {
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	t := domain.Task{
		ID: f.nextID("t"), Title: in.Title, StatusID: in.StatusID, Date: in.Date, Order: in.Order,
		CreatedAt: now, UpdatedAt: now, StartedAt: in.StartedAt, CompletedAt: in.CompletedAt,
	}
	f.tasks[t.ID] = t
	return t
}

func (f *fakeStore) CreateTask(ctx context.Context, userID string, in domain.NewTask) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateTask"); err != nil {
		return domain.Task{}, err
	}
	return f.create(in), nil
}

func (f *fakeStore) CreateTasks(ctx context.Context, userID string, in []domain.NewTask) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateTasks"); err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(in))
	for _, nt := range in {
		out = append(out, f.create(nt))
	}
	return out, nil
}

func (f *fakeStore) UpdateTask(ctx context.Context, userID, taskID string, upd domain.TaskUpdate) (domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("UpdateTask"); err != nil {
		return domain.Task{}, err
	}
	t, ok := f.tasks[taskID]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	t = upd.Apply(t)
	f.tasks[taskID] = t
	f.updates = append(f.updates, taskID)
	return t, nil
}

func (f *fakeStore) DeleteTask(ctx context.Context, userID, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteTask"); err != nil {
		return err
	}
	delete(f.tasks, taskID)
	f.deleted = append(f.deleted, taskID)
	return nil
}

func (f *fakeStore) ListStatuses(ctx context.Context, userID string) ([]domain.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Status, 0, len(f.statuses))
	for _, s := range f.statuses {
		out = append(out, s)
	}
	return domain.SortStatuses(out), nil
}

func (f *fakeStore) EnsureDefaultStatuses(ctx context.Context, userID string, names domain.RoleNames) ([]domain.Status, error) {
	f.mu.Lock()
	if len(f.statuses) == 0 {
		for _, s := range domain.DefaultStatuses(names) {
			s.ID = strings.ToLower(strings.ReplaceAll(s.Name, " ", "-"))
			f.statuses[s.ID] = s
		}
	}
	f.mu.Unlock()
	return f.ListStatuses(ctx, userID)
}

func (f *fakeStore) CreateStatus(ctx context.Context, userID, name string, order int) (domain.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateStatus"); err != nil {
		return domain.Status{}, err
	}
	s := domain.Status{ID: f.nextID("s"), Name: name, Order: order}
	f.statuses[s.ID] = s
	return s, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, userID, statusID string, upd domain.StatusUpdate) (domain.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("UpdateStatus"); err != nil {
		return domain.Status{}, err
	}
	s, ok := f.statuses[statusID]
	if !ok {
		return domain.Status{}, domain.ErrStatusNotFound
	}
	if upd.Name != nil {
		s.Name = *upd.Name
	}
	if upd.Order != nil {
		s.Order = *upd.Order
	}
	f.statuses[statusID] = s
	return s, nil
}

func (f *fakeStore) DeleteStatus(ctx context.Context, userID, statusID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.statuses, statusID)
	return nil
}

func (f *fakeStore) CreateTaskStatusHistory(ctx context.Context, userID string, change domain.StatusChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateTaskStatusHistory"); err != nil {
		return err
	}
	f.history = append(f.history, change)
	return nil
}
