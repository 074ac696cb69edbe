package storage

import (
	"context"

	"tasktrail/domain"
)

// Backend is implemented by every store: the Azure tables store, the
// in-memory store and the Redis cache around either of them.
type Backend interface {
	ListTasks(ctx context.Context, userID string) ([]domain.Task, error)
	ListTasksByDate(ctx context.Context, userID, date string) ([]domain.Task, error)
	FetchArchivedTasks(ctx context.Context, userID string) ([]domain.Task, error)
	CreateTask(ctx context.Context, userID string, in domain.NewTask) (domain.Task, error)
	CreateTasks(ctx context.Context, userID string, in []domain.NewTask) ([]domain.Task, error)
	UpdateTask(ctx context.Context, userID, taskID string, upd domain.TaskUpdate) (domain.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error

	ListStatuses(ctx context.Context, userID string) ([]domain.Status, error)
	EnsureDefaultStatuses(ctx context.Context, userID string, names domain.RoleNames) ([]domain.Status, error)
	CreateStatus(ctx context.Context, userID, name string, order int) (domain.Status, error)
	UpdateStatus(ctx context.Context, userID, statusID string, upd domain.StatusUpdate) (domain.Status, error)
	DeleteStatus(ctx context.Context, userID, statusID string) error

	CreateTaskStatusHistory(ctx context.Context, userID string, change domain.StatusChange) error
	ListStatusHistory(ctx context.Context, userID, taskID string) ([]domain.StatusChange, error)
}

var (
	_ Backend = (*Storage)(nil)
	_ Backend = (*Memory)(nil)
	_ Backend = (*Cache)(nil)
)

func archivedFirst(tasks []domain.Task) {
	sortTasks(tasks, func(a, b domain.Task) bool {
		at, bt := a.UpdatedAt, b.UpdatedAt
		if a.ArchivedAt != nil {
			at = *a.ArchivedAt
		}
		if b.ArchivedAt != nil {
			bt = *b.ArchivedAt
		}
		return at.After(bt)
	})
}
