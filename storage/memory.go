package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tasktrail/domain"
)

type memoryBoard struct {
	tasks    map[string]domain.Task
	statuses map[string]domain.Status
	history  []domain.StatusChange
}

// Memory is an in-process store for local development and tests. History is
// written directly, without a queue.
type Memory struct {
	mu     sync.Mutex
	boards map[string]*memoryBoard
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{boards: map[string]*memoryBoard{}, now: func() time.Time { return time.Now().UTC() }}
}

func (m *Memory) board(userID string) *memoryBoard {
	b, ok := m.boards[userID]
	if !ok {
		b = &memoryBoard{tasks: map[string]domain.Task{}, statuses: map[string]domain.Status{}}
		m.boards[userID] = b
	}
	return b
}

func (m *Memory) filterTasks(userID string, keep func(domain.Task) bool) []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Task{}
	for _, t := range m.board(userID).tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sortTasks(out, func(a, b domain.Task) bool {
		if a.StatusID == b.StatusID {
			return a.Order < b.Order
		}
		return a.StatusID < b.StatusID
	})
	return out
}

func (m *Memory) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	return m.filterTasks(userID, func(t domain.Task) bool { return !t.IsArchived }), nil
}

func (m *Memory) ListTasksByDate(ctx context.Context, userID, date string) ([]domain.Task, error) {
	tasks := m.filterTasks(userID, func(t domain.Task) bool { return !t.IsArchived && t.Date == date })
	sortTasks(tasks, func(a, b domain.Task) bool { return a.Order < b.Order })
	return tasks, nil
}

func (m *Memory) FetchArchivedTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	tasks := m.filterTasks(userID, func(t domain.Task) bool { return t.IsArchived })
	archivedFirst(tasks)
	return tasks, nil
}

func (m *Memory) newTask(in domain.NewTask) domain.Task {
	now := m.now()
	return domain.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		StatusID:    in.StatusID,
		Date:        in.Date,
		Order:       in.Order,
		CreatedAt:   now,
		UpdatedAt:   now,
		StartedAt:   in.StartedAt,
		CompletedAt: in.CompletedAt,
	}
}

func (m *Memory) CreateTask(ctx context.Context, userID string, in domain.NewTask) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.newTask(in)
	m.board(userID).tasks[t.ID] = t
	return t, nil
}

func (m *Memory) CreateTasks(ctx context.Context, userID string, in []domain.NewTask) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.board(userID)
	out := make([]domain.Task, 0, len(in))
	for _, nt := range in {
		t := m.newTask(nt)
		b.tasks[t.ID] = t
		out = append(out, t)
	}
	return out, nil
}

func (m *Memory) UpdateTask(ctx context.Context, userID, taskID string, upd domain.TaskUpdate) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.board(userID)
	t, ok := b.tasks[taskID]
	if !ok {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	t = upd.Apply(t)
	t.UpdatedAt = m.now()
	b.tasks[taskID] = t
	return t, nil
}

func (m *Memory) DeleteTask(ctx context.Context, userID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.board(userID).tasks, taskID)
	return nil
}

func (m *Memory) ListStatuses(ctx context.Context, userID string) ([]domain.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statuses(userID), nil
}

func (m *Memory) statuses(userID string) []domain.Status {
	out := []domain.Status{}
	for _, s := range m.board(userID).statuses {
		out = append(out, s)
	}
	return domain.SortStatuses(out)
}

func (m *Memory) EnsureDefaultStatuses(ctx context.Context, userID string, names domain.RoleNames) ([]domain.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.board(userID)
	renames, missing := planDefaults(m.statuses(userID), names)
	for _, r := range renames {
		s := b.statuses[r.id]
		s.Name, s.Order = r.name, r.order
		b.statuses[r.id] = s
	}
	for _, d := range missing {
		d.ID = uuid.NewString()
		d.CreatedAt = m.now()
		b.statuses[d.ID] = d
	}
	return m.statuses(userID), nil
}

func (m *Memory) CreateStatus(ctx context.Context, userID, name string, order int) (domain.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := domain.Status{ID: uuid.NewString(), Name: name, Order: order, CreatedAt: m.now()}
	m.board(userID).statuses[s.ID] = s
	return s, nil
}

func (m *Memory) UpdateStatus(ctx context.Context, userID, statusID string, upd domain.StatusUpdate) (domain.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.board(userID)
	s, ok := b.statuses[statusID]
	if !ok {
		return domain.Status{}, domain.ErrStatusNotFound
	}
	if upd.Name != nil {
		s.Name = *upd.Name
	}
	if upd.Order != nil {
		s.Order = *upd.Order
	}
	b.statuses[statusID] = s
	return s, nil
}

func (m *Memory) DeleteStatus(ctx context.Context, userID, statusID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.board(userID).statuses, statusID)
	return nil
}

func (m *Memory) CreateTaskStatusHistory(ctx context.Context, userID string, change domain.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.board(userID)
	b.history = append(b.history, change)
	return nil
}

func (m *Memory) ListStatusHistory(ctx context.Context, userID, taskID string) ([]domain.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.StatusChange{}
	for _, c := range m.board(userID).history {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}
